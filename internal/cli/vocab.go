package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

func newVocabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the vocabulary catalog",
	}
	cmd.AddCommand(newVocabAddCmd(a), newVocabListCmd(a))
	return cmd
}

func newVocabAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add WORD READING MEANING",
		Short: "Add one vocabulary word",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			levelFlag, _ := cmd.Flags().GetString("level")
			pos, _ := cmd.Flags().GetString("pos")

			level := domain.LevelNone
			if levelFlag != "" {
				var err error
				if level, err = domain.ParseLevel(levelFlag); err != nil {
					return err
				}
			}
			v := &domain.Vocab{
				Word:         args[0],
				Reading:      args[1],
				Meanings:     domain.Meanings{a.cfg.Language: []string{args[2]}},
				JLPTLevel:    level,
				PartOfSpeech: pos,
			}
			id, err := a.db.CreateVocab(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added vocabulary %d: %s\n", id, v.Display())
			return nil
		},
	}
	cmd.Flags().StringP("level", "l", "", "JLPT level (n5-n1)")
	cmd.Flags().String("pos", "", "part of speech")
	return cmd
}

func newVocabListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vocabulary, with optional prefix/substring search",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			reading, _ := cmd.Flags().GetString("reading")
			meaning, _ := cmd.Flags().GetString("meaning")
			limit, _ := cmd.Flags().GetInt("limit")

			f := storage.ItemFilter{
				ReadingPrefix:    reading,
				MeaningSubstring: meaning,
				Limit:            limit,
			}
			if level != "" {
				l, err := parseLevelFlag(level)
				if err != nil {
					return err
				}
				f.Level = l
			}
			items, err := a.db.ListItems(cmd.Context(), domain.KindVocab, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, it := range items {
				ms, _ := it.ItemMeanings().ForLanguage(a.cfg.Language)
				fmt.Fprintf(out, "%4d  %-20s %s\n", it.ItemID(), it.Display(), ms[0])
			}
			fmt.Fprintf(out, "%d item(s)\n", len(items))
			return nil
		},
	}
	cmd.Flags().StringP("level", "l", "", "JLPT level (n5-n1)")
	cmd.Flags().String("reading", "", "reading prefix")
	cmd.Flags().String("meaning", "", "meaning substring")
	cmd.Flags().IntP("limit", "n", 50, "maximum rows")
	return cmd
}
