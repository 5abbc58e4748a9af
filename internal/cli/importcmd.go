package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/importer"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import catalog data from external sources",
	}
	cmd.AddCommand(newImportJMdictCmd(a), newImportKanjidicCmd(a), newImportWordlistCmd(a))
	return cmd
}

func newImportJMdictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jmdict FILE",
		Short: "Import vocabulary from a JMdict XML dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := importer.ParseJMdictFile(args[0])
			if err != nil {
				return err
			}
			res, err := importer.ImportVocab(cmd.Context(), a.db, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}
}

func newImportKanjidicCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kanjidic FILE",
		Short: "Import kanji from a KANJIDIC2 XML dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := importer.ParseKanjidicFile(args[0])
			if err != nil {
				return err
			}
			res, err := importer.ImportKanji(cmd.Context(), a.db, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}
}

func newImportWordlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wordlist URL",
		Short: "Sync a git-hosted wordlist repository and import its decks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			local := filepath.Join(dir, repoDirName(args[0]))
			if err := importer.SyncRepo(args[0], local); err != nil {
				return err
			}
			res, err := importer.ImportWordlistDir(cmd.Context(), a.db, local)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}
	cmd.Flags().String("dir", "decks", "directory for synced repositories")
	return cmd
}

// repoDirName derives a stable checkout directory from a repo URL.
func repoDirName(url string) string {
	base := filepath.Base(url)
	if ext := filepath.Ext(base); ext == ".git" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == "/" {
		return "wordlist"
	}
	return base
}
