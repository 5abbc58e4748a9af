package ui

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/mcq"
	"github.com/tranvo/nihongo/internal/review"
	"github.com/tranvo/nihongo/internal/srs"
	"github.com/tranvo/nihongo/internal/storage"
)

// FlashSession drives an interactive flashcard run. The user rates
// recall on the four-level FSRS scale; "q" ends the session cleanly.
type FlashSession struct {
	DB        *storage.DB
	Scheduler *review.Scheduler
	Language  string
	In        *bufio.Reader
	Out       io.Writer
}

// Run reviews every due card matching the filter. Per-card errors skip
// the card; store failures abort.
func (s *FlashSession) Run(ctx context.Context, f storage.DueFilter) error {
	due, err := s.Scheduler.Due(ctx, f)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Fprintln(s.Out, "Nothing due. 頑張って!")
		return nil
	}
	fmt.Fprintf(s.Out, "%d cards due.\n\n", len(due))

	for i, r := range due {
		item, err := s.DB.GetItem(ctx, r.ItemID, r.ItemKind)
		if err != nil {
			if stderrors.Is(err, domain.ErrNotFound) {
				fmt.Fprintf(s.Out, "skipping review %d: item missing\n", r.ID)
				continue
			}
			return err
		}

		fmt.Fprintf(s.Out, "[%d/%d] %s\n", i+1, len(due), ItemPrompt(item))
		fmt.Fprint(s.Out, "press enter to reveal (q to quit): ")
		started := time.Now()
		line, err := s.In.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "q" {
			fmt.Fprintln(s.Out, "Session ended.")
			return nil
		}
		fmt.Fprintf(s.Out, "→ %s\n", ItemAnswer(item, s.Language))

		rating, quit := s.promptRating()
		if quit {
			fmt.Fprintln(s.Out, "Session ended.")
			return nil
		}
		duration := time.Since(started).Milliseconds()

		if _, err := s.Scheduler.Apply(ctx, r.ID, rating, &duration); err != nil {
			return err
		}
		fmt.Fprintln(s.Out)
	}
	fmt.Fprintln(s.Out, "Session complete.")
	return nil
}

func (s *FlashSession) promptRating() (srs.Rating, bool) {
	for {
		fmt.Fprint(s.Out, "rate recall [1=again 2=hard 3=good 4=easy, q=quit]: ")
		line, err := s.In.ReadString('\n')
		if err != nil {
			return 0, true
		}
		line = strings.TrimSpace(line)
		if line == "q" {
			return 0, true
		}
		n, err := strconv.Atoi(line)
		if err == nil && srs.Rating(n).Valid() {
			return srs.Rating(n), false
		}
		fmt.Fprintln(s.Out, "enter 1, 2, 3 or 4")
	}
}

// MCQSession drives an interactive multiple-choice run. Questions are
// generated fresh per review; items the generator cannot serve are
// skipped, not fatal.
type MCQSession struct {
	DB        *storage.DB
	Scheduler *mcq.Scheduler
	Generator *mcq.Generator
	Type      mcq.QuestionType
	Language  string
	In        *bufio.Reader
	Out       io.Writer
}

// Run answers every due MCQ review matching the filter.
func (s *MCQSession) Run(ctx context.Context, f storage.DueFilter) error {
	due, err := s.Scheduler.Due(ctx, f)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Fprintln(s.Out, "Nothing due. 頑張って!")
		return nil
	}
	fmt.Fprintf(s.Out, "%d questions due.\n\n", len(due))

	correct := 0
	answered := 0
	for i, r := range due {
		q, err := s.Generator.Generate(ctx, r.ItemID, r.ItemKind, s.Type, s.Language)
		if err != nil {
			if stderrors.Is(err, domain.ErrUnavailable) {
				fmt.Fprintf(s.Out, "skipping %s %d: not enough options\n", r.ItemKind, r.ItemID)
				continue
			}
			return err
		}

		fmt.Fprintf(s.Out, "[%d/%d] %s\n", i+1, len(due), q.Prompt)
		for slot, option := range q.Options {
			fmt.Fprintf(s.Out, "  %s) %s\n", optionLabels[slot], option)
		}

		started := time.Now()
		selected, quit := s.promptOption()
		if quit {
			fmt.Fprintln(s.Out, "Session ended.")
			break
		}
		duration := time.Since(started).Milliseconds()

		isCorrect := selected == q.CorrectIndex
		if isCorrect {
			correct++
			fmt.Fprintln(s.Out, "correct!")
		} else {
			fmt.Fprintf(s.Out, "incorrect — %s\n", q.Explanation)
		}
		answered++

		if _, err := s.Scheduler.Apply(ctx, r.ID, isCorrect, selected, &duration); err != nil {
			return err
		}
		fmt.Fprintln(s.Out)
	}
	if answered > 0 {
		fmt.Fprintf(s.Out, "Score: %d/%d\n", correct, answered)
	}
	return nil
}

func (s *MCQSession) promptOption() (int, bool) {
	for {
		fmt.Fprint(s.Out, "answer [A-D, q=quit]: ")
		line, err := s.In.ReadString('\n')
		if err != nil {
			return 0, true
		}
		line = strings.ToUpper(strings.TrimSpace(line))
		if line == "Q" {
			return 0, true
		}
		for slot, label := range optionLabels {
			if line == label {
				return slot, false
			}
		}
		fmt.Fprintln(s.Out, "enter A, B, C or D")
	}
}
