// Package ui renders review sessions and progress tables on a
// terminal. It owns all user interaction; the schedulers never block
// on input.
package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/stats"
	"github.com/tranvo/nihongo/internal/storage"
)

// optionLabels are the display labels for MCQ option slots 0-3.
var optionLabels = [4]string{"A", "B", "C", "D"}

// ItemPrompt renders the front of a flashcard.
func ItemPrompt(item domain.Item) string {
	switch it := item.(type) {
	case *domain.Vocab:
		return fmt.Sprintf("%s 「%s」", it.Word, it.Reading)
	case *domain.Kanji:
		return it.Character
	}
	return ""
}

// ItemAnswer renders the back of a flashcard in the session language.
func ItemAnswer(item domain.Item, language string) string {
	meanings, _ := item.ItemMeanings().ForLanguage(language)
	out := ""
	for i, m := range meanings {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	if k, ok := item.(*domain.Kanji); ok {
		out += "\n  on: "
		for i, r := range k.OnReadings {
			if i > 0 {
				out += ", "
			}
			out += r
		}
		out += "\n  kun: "
		for i, r := range k.KunReadings {
			if i > 0 {
				out += ", "
			}
			out += r
		}
	}
	return out
}

// LevelCountsTable prints a per-level count table for both item kinds.
func LevelCountsTable(w io.Writer, vocab, kanji map[domain.Level]int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Level", "Vocabulary", "Kanji"})
	for _, level := range domain.Levels {
		table.Append([]string{
			string(level),
			strconv.Itoa(vocab[level]),
			strconv.Itoa(kanji[level]),
		})
	}
	table.Render()
}

// MCQStatsTable prints per-kind MCQ accuracy.
func MCQStatsTable(w io.Writer, byType map[string]stats.TypeStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Total", "Correct", "Accuracy"})
	for _, key := range []string{"vocab", "kanji", "overall"} {
		ts := byType[key]
		table.Append([]string{
			key,
			strconv.Itoa(ts.Total),
			strconv.Itoa(ts.Correct),
			fmt.Sprintf("%.1f%%", ts.Accuracy),
		})
	}
	table.Render()
}

// MostReviewedTable prints the lifetime review leaderboard.
func MostReviewedTable(w io.Writer, items []storage.MostReviewedItem) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Item", "Kind", "Reviews"})
	for _, it := range items {
		table.Append([]string{it.Text, string(it.ItemKind), strconv.Itoa(it.ReviewCount)})
	}
	table.Render()
}

// OptionDistributionTable prints the A-D selection counts.
func OptionDistributionTable(w io.Writer, dist map[string]int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Option", "Selected"})
	for _, label := range optionLabels {
		table.Append([]string{label, strconv.Itoa(dist[label])})
	}
	table.Render()
}
