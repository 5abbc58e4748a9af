package cli

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/review"
	"github.com/tranvo/nihongo/internal/storage"
	"github.com/tranvo/nihongo/internal/ui"
)

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run a flashcard review session",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			level, _ := cmd.Flags().GetString("level")
			kind, _ := cmd.Flags().GetString("kind")

			filter, err := dueFilter(limit, level, kind)
			if err != nil {
				return err
			}

			session := &ui.FlashSession{
				DB:        a.db,
				Scheduler: review.NewScheduler(a.db, a.engine()),
				Language:  a.cfg.Language,
				In:        bufio.NewReader(os.Stdin),
				Out:       cmd.OutOrStdout(),
			}
			return session.Run(cmd.Context(), filter)
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "maximum cards to review")
	cmd.Flags().StringP("level", "l", "", "filter by JLPT level (n5-n1)")
	cmd.Flags().StringP("kind", "k", "", "filter by item kind (vocab or kanji)")
	return cmd
}

// dueFilter converts the shared session flags into a store filter.
func dueFilter(limit int, level, kind string) (storage.DueFilter, error) {
	var f storage.DueFilter
	f.Limit = limit
	if level != "" {
		l, err := parseLevelFlag(level)
		if err != nil {
			return f, err
		}
		f.Level = l
	}
	if kind != "" && kind != "both" {
		k, err := parseKindFlag(kind)
		if err != nil {
			return f, err
		}
		f.Kind = k
	}
	return f, nil
}
