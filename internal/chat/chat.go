// Package chat exposes the catalog and progress to an LLM through an
// OpenAI-compatible tool-calling loop.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/config"
	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/stats"
	"github.com/tranvo/nihongo/internal/storage"
)

const systemPrompt = `You are a Japanese study assistant. You can search the
user's vocabulary and kanji catalog, check what is due for review, and read
their progress. Answer concisely; show Japanese text with its reading.`

// maxToolRounds bounds one user turn; a model stuck calling tools is
// cut off rather than looped forever.
const maxToolRounds = 5

// Assistant is a terminal chat loop over the study database.
type Assistant struct {
	client *openai.Client
	model  string
	db     *storage.DB
	stats  *stats.Service
}

// NewAssistant wires the assistant. The API key is required; base URL
// override supports compatible providers.
func NewAssistant(cfg config.ChatConfig, db *storage.DB) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(domain.ErrInvalid, "chat requires an API key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Assistant{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		db:     db,
		stats:  stats.NewService(db),
	}, nil
}

// Run reads user lines until EOF or "quit".
func (a *Assistant) Run(ctx context.Context, in *bufio.Reader, out io.Writer) error {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	for {
		fmt.Fprint(out, "you> ")
		line, err := in.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser, Content: line,
		})

		reply, newMessages, err := a.complete(ctx, messages)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		messages = newMessages
		fmt.Fprintf(out, "assistant> %s\n", reply)
	}
}

// complete runs the completion/tool loop for one user turn.
func (a *Assistant) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, []openai.ChatCompletionMessage, error) {
	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return "", messages, errors.Wrap(err, "chat completion")
		}
		if len(resp.Choices) == 0 {
			return "", messages, errors.New("empty completion")
		}
		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, messages, nil
		}
		for _, call := range msg.ToolCalls {
			result := a.dispatch(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
	return "", messages, errors.New("tool loop did not converge")
}

func toolDefinitions() []openai.Tool {
	obj := func(props map[string]any, required []string) json.RawMessage {
		schema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		b, _ := json.Marshal(schema)
		return b
	}
	return []openai.Tool{
		{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{
			Name:        "search_vocabulary",
			Description: "Search vocabulary by meaning substring or reading prefix.",
			Parameters: obj(map[string]any{
				"meaning": map[string]any{"type": "string"},
				"reading": map[string]any{"type": "string"},
				"level":   map[string]any{"type": "string", "enum": []string{"n5", "n4", "n3", "n2", "n1"}},
			}, nil),
		}},
		{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{
			Name:        "search_kanji",
			Description: "Search kanji by meaning substring or radical.",
			Parameters: obj(map[string]any{
				"meaning": map[string]any{"type": "string"},
				"radical": map[string]any{"type": "string"},
				"level":   map[string]any{"type": "string", "enum": []string{"n5", "n4", "n3", "n2", "n1"}},
			}, nil),
		}},
		{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{
			Name:        "due_counts",
			Description: "Count flashcard and MCQ reviews currently due.",
			Parameters:  obj(map[string]any{}, nil),
		}},
		{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{
			Name:        "get_progress",
			Description: "Read the user's levels, streak, and retention rate.",
			Parameters:  obj(map[string]any{}, nil),
		}},
	}
}

// dispatch executes one tool call; failures are reported back to the
// model as JSON rather than surfaced.
func (a *Assistant) dispatch(ctx context.Context, name, rawArgs string) string {
	var args struct {
		Meaning string `json:"meaning"`
		Reading string `json:"reading"`
		Radical string `json:"radical"`
		Level   string `json:"level"`
	}
	_ = json.Unmarshal([]byte(rawArgs), &args)

	var result any
	var err error
	switch name {
	case "search_vocabulary":
		result, err = a.searchItems(ctx, domain.KindVocab, args.Meaning, args.Reading, "", args.Level)
	case "search_kanji":
		result, err = a.searchItems(ctx, domain.KindKanji, args.Meaning, "", args.Radical, args.Level)
	case "due_counts":
		result, err = a.dueCounts(ctx)
	case "get_progress":
		result, err = a.progress(ctx)
	default:
		err = errors.Errorf("unknown tool %q", name)
	}
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}
	b, jerr := json.Marshal(result)
	if jerr != nil {
		return `{"error":"unserialisable result"}`
	}
	return string(b)
}

func (a *Assistant) searchItems(ctx context.Context, kind domain.ItemKind, meaning, reading, radical, level string) (any, error) {
	f := storage.ItemFilter{
		MeaningSubstring: meaning,
		ReadingPrefix:    reading,
		Radical:          radical,
		Limit:            10,
	}
	if level != "" {
		l, err := domain.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		f.Level = &l
	}
	items, err := a.db.ListItems(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	type hit struct {
		ID       int64    `json:"id"`
		Display  string   `json:"display"`
		Level    string   `json:"level,omitempty"`
		Meanings []string `json:"meanings"`
	}
	hits := make([]hit, 0, len(items))
	for _, it := range items {
		ms, _ := it.ItemMeanings().ForLanguage("en")
		hits = append(hits, hit{
			ID: it.ItemID(), Display: it.Display(),
			Level: string(it.Level()), Meanings: ms,
		})
	}
	return hits, nil
}

func (a *Assistant) dueCounts(ctx context.Context) (any, error) {
	now := storage.DueFilter{}
	flashDue, err := a.db.ListDue(ctx, domain.ModeFlash, now)
	if err != nil {
		return nil, err
	}
	mcqDue, err := a.db.ListDue(ctx, domain.ModeMCQ, now)
	if err != nil {
		return nil, err
	}
	return map[string]int{"flashcards_due": len(flashDue), "mcq_due": len(mcqDue)}, nil
}

func (a *Assistant) progress(ctx context.Context) (any, error) {
	p, err := a.db.GetProgress(ctx, storage.DefaultUserID)
	if err != nil {
		return nil, err
	}
	retention, err := a.stats.RetentionRate(ctx, stats.DateRange{})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"current_level":  string(p.CurrentLevel),
		"target_level":   string(p.TargetLevel),
		"streak_days":    p.StreakDays,
		"retention_rate": retention,
	}, nil
}
