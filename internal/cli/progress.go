package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/stats"
	"github.com/tranvo/nihongo/internal/storage"
	"github.com/tranvo/nihongo/internal/ui"
)

func newProgressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show and manage study progress",
	}
	cmd.AddCommand(newProgressShowCmd(a), newProgressSetLevelCmd(a), newProgressStatsCmd(a))
	return cmd
}

func newProgressShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show levels, streak, and catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			p, err := a.db.GetProgress(ctx, storage.DefaultUserID)
			if err != nil {
				return err
			}
			svc := stats.NewService(a.db)
			vocab, err := svc.VocabCountByLevel(ctx)
			if err != nil {
				return err
			}
			kanji, err := svc.KanjiCountByLevel(ctx)
			if err != nil {
				return err
			}
			masteredVocab, err := svc.Mastered(ctx, domain.KindVocab)
			if err != nil {
				return err
			}
			masteredKanji, err := svc.Mastered(ctx, domain.KindKanji)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Level: %s → %s\n", p.CurrentLevel, p.TargetLevel)
			fmt.Fprintf(out, "Streak: %d day(s)\n", p.StreakDays)
			fmt.Fprintf(out, "Mastered: %d vocabulary, %d kanji\n\n", masteredVocab, masteredKanji)
			ui.LevelCountsTable(out, vocab, kanji)
			return nil
		},
	}
}

func newProgressSetLevelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-level LEVEL",
		Short: "Set the target (or, with --current, the current) JLPT level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := domain.ParseLevel(args[0])
			if err != nil {
				return err
			}
			if level == domain.LevelNone {
				return fmt.Errorf("%w: level must be n5-n1", domain.ErrInvalid)
			}
			current, _ := cmd.Flags().GetBool("current")

			ctx := cmd.Context()
			return a.db.WithTx(ctx, func(tx *storage.Tx) error {
				p, err := tx.GetProgress(ctx, storage.DefaultUserID)
				if err != nil {
					return err
				}
				if current {
					p.CurrentLevel = level
				} else {
					p.TargetLevel = level
				}
				return tx.SaveProgress(ctx, p)
			})
		},
	}
	cmd.Flags().Bool("current", false, "set the current level instead of the target")
	return cmd
}

func newProgressStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeFlag, _ := cmd.Flags().GetString("range")
			dr, err := parseRange(rangeFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			svc := stats.NewService(a.db)

			retention, err := svc.RetentionRate(ctx, dr)
			if err != nil {
				return err
			}
			avgMs, err := svc.AvgReviewDurationMs(ctx, dr)
			if err != nil {
				return err
			}
			byType, err := svc.MCQStatsByType(ctx, dr)
			if err != nil {
				return err
			}
			dist, err := svc.MCQOptionDistribution(ctx, dr)
			if err != nil {
				return err
			}
			top, err := svc.MostReviewed(ctx, 10, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Retention: %.1f%%\n", retention)
			fmt.Fprintf(out, "Average review time: %.1fs\n\n", avgMs/1000)
			fmt.Fprintln(out, "MCQ accuracy:")
			ui.MCQStatsTable(out, byType)
			fmt.Fprintln(out, "\nOption selection:")
			ui.OptionDistributionTable(out, dist)
			if len(top) > 0 {
				fmt.Fprintln(out, "\nMost reviewed:")
				ui.MostReviewedTable(out, top)
			}
			return nil
		},
	}
	cmd.Flags().String("range", "all", "date range (7d, 30d, all)")
	return cmd
}

func parseRange(s string) (stats.DateRange, error) {
	var days int
	switch s {
	case "all", "":
		return stats.DateRange{}, nil
	case "7d":
		days = 7
	case "30d":
		days = 30
	default:
		return stats.DateRange{}, fmt.Errorf("%w: range %q (want 7d, 30d or all)", domain.ErrInvalid, s)
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days - 1))
	return stats.DateRange{Start: &start, End: &end}, nil
}
