package importer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/tranvo/nihongo/internal/domain"
)

// Wordlist decks are plain text files of prefixed blocks:
//
//	W: 単語
//	R: たんご
//	M: vi=từ vựng; en=word, vocabulary
//	L: n5
//	P: noun
//
// A new W: line (or EOF) closes the current entry. Unknown prefixes and
// malformed level tags are skipped rather than fatal; decks are curated
// by hand and a single bad line should not sink an import.
const (
	wordPrefix    = "W:"
	readingPrefix = "R:"
	meaningPrefix = "M:"
	levelPrefix   = "L:"
	posPrefix     = "P:"
)

// ParseWordlistFile reads a deck file and extracts vocabulary entries.
func ParseWordlistFile(path string) ([]*domain.Vocab, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseWordlist(file)
}

// ParseWordlist reads deck entries from an io.Reader.
func ParseWordlist(r io.Reader) ([]*domain.Vocab, error) {
	scanner := bufio.NewScanner(r)
	var entries []*domain.Vocab
	var current *domain.Vocab

	finish := func() {
		if current != nil && current.Word != "" && current.Reading != "" && len(current.Meanings) > 0 {
			entries = append(entries, current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, wordPrefix):
			finish()
			current = &domain.Vocab{
				Word:     strings.TrimSpace(strings.TrimPrefix(line, wordPrefix)),
				Meanings: domain.Meanings{},
			}
		case current == nil:
			// text before the first entry
		case strings.HasPrefix(line, readingPrefix):
			current.Reading = strings.TrimSpace(strings.TrimPrefix(line, readingPrefix))
		case strings.HasPrefix(line, meaningPrefix):
			parseMeanings(current.Meanings, strings.TrimPrefix(line, meaningPrefix))
		case strings.HasPrefix(line, levelPrefix):
			if level, err := domain.ParseLevel(strings.TrimSpace(strings.TrimPrefix(line, levelPrefix))); err == nil {
				current.JLPTLevel = level
			}
		case strings.HasPrefix(line, posPrefix):
			current.PartOfSpeech = strings.TrimSpace(strings.TrimPrefix(line, posPrefix))
		}
	}
	finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseMeanings splits "vi=a, b; en=c" into the meanings map.
func parseMeanings(m domain.Meanings, raw string) {
	for _, group := range strings.Split(raw, ";") {
		lang, list, ok := strings.Cut(strings.TrimSpace(group), "=")
		if !ok {
			continue
		}
		var meanings []string
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				meanings = append(meanings, s)
			}
		}
		if len(meanings) > 0 {
			m[strings.TrimSpace(lang)] = meanings
		}
	}
}
