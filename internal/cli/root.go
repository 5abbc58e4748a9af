// Package cli wires the cobra command tree over the study core.
package cli

import (
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/config"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

// app carries the shared wiring each command needs.
type app struct {
	cfg config.Config
	db  *storage.DB
	rng *rand.Rand
}

func (a *app) engine() *srs.Scheduler {
	params := srs.DefaultParams()
	params.DesiredRetention = a.cfg.FSRS.DesiredRetention
	params.MaximumInterval = a.cfg.FSRS.MaximumInterval
	params.EnableFuzzing = a.cfg.FSRS.EnableFuzzing
	return srs.NewScheduler(params, a.rng)
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "nihongo",
		Short:         "Japanese study: spaced-repetition flashcards and quizzes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "nihongo.yaml", "config file path")
	root.PersistentFlags().String("db_path", "", "database file path")
	root.PersistentFlags().String("language", "", "meaning language (vi or en)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))

		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return err
			}
		}
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		a.db = db
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				slog.Error("closing database", "error", err)
			}
		}
	}

	root.AddCommand(
		newReviewCmd(a),
		newMCQCmd(a),
		newProgressCmd(a),
		newVocabCmd(a),
		newKanjiCmd(a),
		newImportCmd(a),
		newChatCmd(a),
	)
	return root
}
