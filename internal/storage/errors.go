package storage

import (
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/tranvo/nihongo/internal/domain"
)

func nowUTC() time.Time { return time.Now().UTC() }

// wrapErr maps a low-level database error onto the domain taxonomy and
// attaches operation context. sql.ErrNoRows becomes ErrNotFound; unique
// violations become ErrConflict; foreign-key and check violations
// become ErrIntegrity; everything else is ErrBackend.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(domain.ErrNotFound, op)
	}

	var se *sqlite.Error
	if stderrors.As(err, &se) {
		switch se.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errors.Wrapf(domain.ErrConflict, "%s: %v", op, err)
		case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY, sqlitelib.SQLITE_CONSTRAINT_CHECK,
			sqlitelib.SQLITE_CONSTRAINT_NOTNULL:
			return errors.Wrapf(domain.ErrIntegrity, "%s: %v", op, err)
		}
	}
	return errors.Wrapf(domain.ErrBackend, "%s: %v", op, err)
}
