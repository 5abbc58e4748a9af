package cli

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/mcq"
	"github.com/tranvo/nihongo/internal/ui"
)

func newMCQCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcq",
		Short: "Run a multiple-choice quiz session",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			level, _ := cmd.Flags().GetString("level")
			kind, _ := cmd.Flags().GetString("kind")
			qtFlag, _ := cmd.Flags().GetString("question-type")
			language, _ := cmd.Flags().GetString("language")

			filter, err := dueFilter(limit, level, kind)
			if err != nil {
				return err
			}
			qt, err := mcq.ParseQuestionType(qtFlag)
			if err != nil {
				return err
			}
			if language == "" {
				language = a.cfg.Language
			}

			session := &ui.MCQSession{
				DB:        a.db,
				Scheduler: mcq.NewScheduler(a.db, a.engine()),
				Generator: mcq.NewGenerator(a.db, a.rng),
				Type:      qt,
				Language:  language,
				In:        bufio.NewReader(os.Stdin),
				Out:       cmd.OutOrStdout(),
			}
			return session.Run(cmd.Context(), filter)
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "maximum questions to answer")
	cmd.Flags().StringP("level", "l", "", "filter by JLPT level (n5-n1)")
	cmd.Flags().StringP("kind", "k", "both", "item kind (vocab, kanji, both)")
	cmd.Flags().StringP("question-type", "t", "mixed", "question type (w2m, m2w, mixed)")
	cmd.Flags().String("language", "", "meaning language (vi or en)")
	return cmd
}

func parseLevelFlag(s string) (*domain.Level, error) {
	l, err := domain.ParseLevel(s)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func parseKindFlag(s string) (*domain.ItemKind, error) {
	k, err := domain.ParseItemKind(s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
