package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvo/nihongo/internal/domain"
	"github.com/tranvo/nihongo/internal/storage"
)

const jmdictSample = `<?xml version="1.0" encoding="UTF-8"?>
<JMdict>
<entry>
<ent_seq>1582710</ent_seq>
<k_ele><keb>単語</keb></k_ele>
<r_ele><reb>たんご</reb></r_ele>
<sense>
<pos>noun</pos>
<gloss>word</gloss>
<gloss>vocabulary</gloss>
<gloss xml:lang="vie">từ vựng</gloss>
</sense>
</entry>
<entry>
<ent_seq>1000001</ent_seq>
<r_ele><reb>ありがとう</reb></r_ele>
<sense><gloss>thank you</gloss></sense>
</entry>
</JMdict>`

func TestParseJMdict(t *testing.T) {
	entries, err := ParseJMdict(strings.NewReader(jmdictSample))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "単語", first.Word)
	assert.Equal(t, "たんご", first.Reading)
	assert.Equal(t, []string{"word", "vocabulary"}, first.Meanings["en"])
	assert.Equal(t, []string{"từ vựng"}, first.Meanings["vi"])
	assert.Equal(t, "noun", first.PartOfSpeech)

	kanaOnly := entries[1]
	assert.Equal(t, "ありがとう", kanaOnly.Word, "kana-only words use the reading as surface")
	assert.Equal(t, "ありがとう", kanaOnly.Reading)
}

const kanjidicSample = `<?xml version="1.0" encoding="UTF-8"?>
<kanjidic2>
<character>
<literal>語</literal>
<misc><stroke_count>14</stroke_count></misc>
<reading_meaning>
<rmgroup>
<reading r_type="ja_on">ゴ</reading>
<reading r_type="ja_kun">かた.る</reading>
<reading r_type="ja_kun">かた.らう</reading>
<meaning>word</meaning>
<meaning>language</meaning>
</rmgroup>
</reading_meaning>
</character>
</kanjidic2>`

func TestParseKanjidic(t *testing.T) {
	entries, err := ParseKanjidic(strings.NewReader(kanjidicSample))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	k := entries[0]
	assert.Equal(t, "語", k.Character)
	assert.Equal(t, 14, k.StrokeCount)
	assert.Equal(t, []string{"ゴ"}, k.OnReadings)
	assert.Equal(t, []string{"かた.る", "かた.らう"}, k.KunReadings)
	assert.Equal(t, []string{"word", "language"}, k.Meanings["en"])
}

func TestImportSkipsDuplicates(t *testing.T) {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	entries, err := ParseJMdict(strings.NewReader(jmdictSample))
	require.NoError(t, err)

	res, err := ImportVocab(ctx, db, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Zero(t, res.Skipped)

	// Re-importing the same dump is a no-op.
	entries, err = ParseJMdict(strings.NewReader(jmdictSample))
	require.NoError(t, err)
	res, err = ImportVocab(ctx, db, entries)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Equal(t, 2, res.Skipped)

	kanji, err := ParseKanjidic(strings.NewReader(kanjidicSample))
	require.NoError(t, err)
	res, err = ImportKanji(ctx, db, kanji)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	kanji, err = ParseKanjidic(strings.NewReader(kanjidicSample))
	require.NoError(t, err)
	res, err = ImportKanji(ctx, db, kanji)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Equal(t, 1, res.Skipped)

	items, err := db.ListItems(ctx, domain.KindVocab, storage.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
