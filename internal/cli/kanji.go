package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

func newKanjiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanji",
		Short: "Manage the kanji catalog",
	}
	cmd.AddCommand(newKanjiAddCmd(a), newKanjiListCmd(a))
	return cmd
}

func newKanjiAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add CHARACTER MEANING",
		Short: "Add one kanji character",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			levelFlag, _ := cmd.Flags().GetString("level")
			on, _ := cmd.Flags().GetString("on")
			kun, _ := cmd.Flags().GetString("kun")
			strokes, _ := cmd.Flags().GetInt("strokes")
			radical, _ := cmd.Flags().GetString("radical")

			level := domain.LevelNone
			if levelFlag != "" {
				var err error
				if level, err = domain.ParseLevel(levelFlag); err != nil {
					return err
				}
			}
			k := &domain.Kanji{
				Character:   args[0],
				OnReadings:  splitList(on),
				KunReadings: splitList(kun),
				Meanings:    domain.Meanings{a.cfg.Language: []string{args[1]}},
				JLPTLevel:   level,
				StrokeCount: strokes,
				Radical:     radical,
			}
			id, err := a.db.CreateKanji(cmd.Context(), k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added kanji %d: %s\n", id, k.Character)
			return nil
		},
	}
	cmd.Flags().StringP("level", "l", "", "JLPT level (n5-n1)")
	cmd.Flags().String("on", "", "comma-separated on-readings")
	cmd.Flags().String("kun", "", "comma-separated kun-readings")
	cmd.Flags().Int("strokes", 0, "stroke count")
	cmd.Flags().String("radical", "", "radical character")
	return cmd
}

func newKanjiListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List kanji, with optional filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			meaning, _ := cmd.Flags().GetString("meaning")
			radical, _ := cmd.Flags().GetString("radical")
			limit, _ := cmd.Flags().GetInt("limit")

			f := storage.ItemFilter{
				MeaningSubstring: meaning,
				Radical:          radical,
				Limit:            limit,
			}
			if level != "" {
				l, err := parseLevelFlag(level)
				if err != nil {
					return err
				}
				f.Level = l
			}
			items, err := a.db.ListItems(cmd.Context(), domain.KindKanji, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, it := range items {
				ms, _ := it.ItemMeanings().ForLanguage(a.cfg.Language)
				fmt.Fprintf(out, "%4d  %s  %s\n", it.ItemID(), it.Display(), ms[0])
			}
			fmt.Fprintf(out, "%d item(s)\n", len(items))
			return nil
		},
	}
	cmd.Flags().StringP("level", "l", "", "JLPT level (n5-n1)")
	cmd.Flags().String("meaning", "", "meaning substring")
	cmd.Flags().String("radical", "", "radical character")
	cmd.Flags().IntP("limit", "n", 50, "maximum rows")
	return cmd
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
