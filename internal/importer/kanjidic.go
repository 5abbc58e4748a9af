package importer

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/tranvo/nihongo/internal/domain"
)

// kanjidicCharacter is the subset of a KANJIDIC2 <character> element
// the catalog needs.
type kanjidicCharacter struct {
	Literal string `xml:"literal"`
	Misc    struct {
		StrokeCount []int `xml:"stroke_count"`
	} `xml:"misc"`
	ReadingMeaning struct {
		RMGroup []struct {
			Reading []struct {
				Type string `xml:"r_type,attr"`
				Text string `xml:",chardata"`
			} `xml:"reading"`
			Meaning []struct {
				Lang string `xml:"m_lang,attr"`
				Text string `xml:",chardata"`
			} `xml:"meaning"`
		} `xml:"rmgroup"`
	} `xml:"reading_meaning"`
}

// ParseKanjidicFile streams a KANJIDIC2 XML file into kanji entries.
func ParseKanjidicFile(path string) ([]*domain.Kanji, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseKanjidic(file)
}

// ParseKanjidic decodes characters one element at a time.
func ParseKanjidic(r io.Reader) ([]*domain.Kanji, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	var entries []*domain.Kanji
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode kanjidic")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "character" {
			continue
		}
		var c kanjidicCharacter
		if err := decoder.DecodeElement(&c, &start); err != nil {
			return nil, errors.Wrap(err, "decode kanjidic character")
		}
		if k := kanjiFromKanjidic(c); k != nil {
			entries = append(entries, k)
		}
	}
	return entries, nil
}

func kanjiFromKanjidic(c kanjidicCharacter) *domain.Kanji {
	if c.Literal == "" {
		return nil
	}
	k := &domain.Kanji{
		Character: c.Literal,
		Meanings:  domain.Meanings{},
	}
	if len(c.Misc.StrokeCount) > 0 {
		k.StrokeCount = c.Misc.StrokeCount[0]
	}
	for _, g := range c.ReadingMeaning.RMGroup {
		for _, r := range g.Reading {
			switch r.Type {
			case "ja_on":
				k.OnReadings = append(k.OnReadings, r.Text)
			case "ja_kun":
				k.KunReadings = append(k.KunReadings, r.Text)
			}
		}
		for _, m := range g.Meaning {
			lang := glossLanguage(m.Lang)
			if lang == "" || m.Text == "" {
				continue
			}
			k.Meanings[lang] = append(k.Meanings[lang], m.Text)
		}
	}
	if len(k.Meanings) == 0 {
		return nil
	}
	return k
}
