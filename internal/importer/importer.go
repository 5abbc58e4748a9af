// Package importer populates the catalog from external corpora: JMdict
// and KANJIDIC2 XML dumps, and git-hosted wordlist decks.
package importer

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

// Result summarises one import run.
type Result struct {
	Added   int
	Skipped int
}

// ImportVocab inserts vocabulary entries, skipping ones whose
// (word, reading) pair already exists.
func ImportVocab(ctx context.Context, db *storage.DB, entries []*domain.Vocab) (Result, error) {
	var res Result
	for _, v := range entries {
		existing, err := db.ListItems(ctx, domain.KindVocab, storage.ItemFilter{
			ReadingPrefix: v.Reading,
		})
		if err != nil {
			return res, err
		}
		dup := false
		for _, it := range existing {
			if ev, ok := it.(*domain.Vocab); ok && ev.Word == v.Word && ev.Reading == v.Reading {
				dup = true
				break
			}
		}
		if dup {
			res.Skipped++
			continue
		}
		if _, err := db.CreateVocab(ctx, v); err != nil {
			return res, err
		}
		res.Added++
	}
	return res, nil
}

// ImportKanji inserts kanji entries; the character unique constraint
// turns re-imports into skips.
func ImportKanji(ctx context.Context, db *storage.DB, entries []*domain.Kanji) (Result, error) {
	var res Result
	for _, k := range entries {
		_, err := db.CreateKanji(ctx, k)
		if stderrors.Is(err, domain.ErrConflict) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Added++
	}
	return res, nil
}

// ImportWordlistDir walks a synced wordlist checkout and imports every
// .txt deck under it.
func ImportWordlistDir(ctx context.Context, db *storage.DB, dir string) (Result, error) {
	var total Result
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".txt") {
			return nil
		}
		entries, err := ParseWordlistFile(path)
		if err != nil {
			slog.Error("skipping unreadable deck", "path", path, "error", err)
			return nil
		}
		res, err := ImportVocab(ctx, db, entries)
		if err != nil {
			return err
		}
		slog.Info("imported deck", "path", path, "added", res.Added, "skipped", res.Skipped)
		total.Added += res.Added
		total.Skipped += res.Skipped
		return nil
	})
	return total, err
}
