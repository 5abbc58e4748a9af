package importer

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

// jmdictEntry is the subset of a JMdict <entry> the catalog needs.
type jmdictEntry struct {
	KEle []struct {
		Keb string `xml:"keb"`
	} `xml:"k_ele"`
	REle []struct {
		Reb string `xml:"reb"`
	} `xml:"r_ele"`
	Sense []struct {
		Pos   []string `xml:"pos"`
		Gloss []struct {
			Lang string `xml:"lang,attr"`
			Text string `xml:",chardata"`
		} `xml:"gloss"`
	} `xml:"sense"`
}

// ParseJMdictFile streams a JMdict XML file into vocabulary entries.
func ParseJMdictFile(path string) ([]*domain.Vocab, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseJMdict(file)
}

// ParseJMdict decodes entries one element at a time; full JMdict dumps
// run to hundreds of megabytes, so the document is never held whole.
func ParseJMdict(r io.Reader) ([]*domain.Vocab, error) {
	decoder := xml.NewDecoder(r)
	// JMdict declares entities like &n; for parts of speech; resolve
	// them to their names rather than failing the parse.
	decoder.Strict = false

	var entries []*domain.Vocab
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode jmdict")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}
		var e jmdictEntry
		if err := decoder.DecodeElement(&e, &start); err != nil {
			return nil, errors.Wrap(err, "decode jmdict entry")
		}
		if v := vocabFromJMdict(e); v != nil {
			entries = append(entries, v)
		}
	}
	return entries, nil
}

func vocabFromJMdict(e jmdictEntry) *domain.Vocab {
	if len(e.REle) == 0 {
		return nil
	}
	v := &domain.Vocab{
		Reading:  e.REle[0].Reb,
		Meanings: domain.Meanings{},
	}
	// Kana-only words have no k_ele; the reading doubles as surface.
	if len(e.KEle) > 0 {
		v.Word = e.KEle[0].Keb
	} else {
		v.Word = v.Reading
	}
	for _, sense := range e.Sense {
		if v.PartOfSpeech == "" && len(sense.Pos) > 0 {
			v.PartOfSpeech = sense.Pos[0]
		}
		for _, g := range sense.Gloss {
			lang := glossLanguage(g.Lang)
			if lang == "" || g.Text == "" {
				continue
			}
			v.Meanings[lang] = append(v.Meanings[lang], g.Text)
		}
	}
	if len(v.Meanings) == 0 {
		return nil
	}
	return v
}

// glossLanguage maps JMdict's ISO-639-2 gloss tags onto the catalog's
// two languages. An absent tag means English.
func glossLanguage(tag string) string {
	switch tag {
	case "", "eng":
		return "en"
	case "vie":
		return "vi"
	}
	return ""
}
