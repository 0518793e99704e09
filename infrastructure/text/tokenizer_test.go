package text

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNaiveTokenizer checks the resource-free segmentation rules.
func TestNaiveTokenizer(t *testing.T) {
	tok := NewNaiveTokenizer()

	tests := []struct {
		name           string
		input          string
		wantWords      []string
		wantSentences  []string
		wantParagraphs []string
	}{
		{
			name:           "two sentences",
			input:          "The Sun rises. It sets!",
			wantWords:      []string{"the", "sun", "rises.", "it", "sets!"},
			wantSentences:  []string{"The Sun rises", "It sets"},
			wantParagraphs: []string{"The Sun rises. It sets!"},
		},
		{
			name:           "punctuation runs and paragraphs",
			input:          "Why?! Because...\r\n\r\nNext   part.\n  \nLast",
			wantWords:      []string{"why?!", "because...", "next", "part.", "last"},
			wantSentences:  []string{"Why", "Because", "Next   part", "Last"},
			wantParagraphs: []string{"Why?! Because...", "Next   part.", "Last"},
		},
		{
			name:  "whitespace only",
			input: " \n\n\t ",
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantWords, nilIfEmpty(tok.Words(tt.input)))
			assert.Equal(t, tt.wantSentences, tok.Sentences(tt.input))
			assert.Equal(t, tt.wantParagraphs, tok.Paragraphs(tt.input))
		})
	}
}

// TestNew verifies mode selection.
func TestNew(t *testing.T) {
	tok, err := New(ModeNaive)
	require.NoError(t, err)
	assert.Equal(t, ModeNaive, tok.Mode())

	_, err = New("statistical")
	assert.ErrorContains(t, err, "unknown tokenizer mode")
}

// TestLinguisticTokenizer exercises the prose-backed boundary models.
func TestLinguisticTokenizer(t *testing.T) {
	tok, err := NewLinguisticTokenizer()
	require.NoError(t, err)
	assert.Equal(t, ModeLinguistic, tok.Mode())

	sentences := tok.Sentences("Solar power is growing fast. Costs keep falling every year.")
	assert.Len(t, sentences, 2)

	words := tok.Words("Solar Power, again!")
	assert.Contains(t, words, "solar")
	assert.Contains(t, words, "power")
	assert.NotContains(t, words, "Solar")

	assert.Empty(t, tok.Words("   "))
	assert.Empty(t, tok.Sentences(""))
	assert.Equal(t, []string{"One.", "Two."}, tok.Paragraphs("One.\n\nTwo."))
}

// TestStopwords covers the embedded list, the fallback, and file loading.
func TestStopwords(t *testing.T) {
	en := EnglishStopwords()
	assert.Equal(t, 179, en.Len())
	assert.True(t, en.Contains("the"))
	assert.True(t, en.Contains("because"))
	assert.False(t, en.Contains("climate"))

	fb := Fallback()
	assert.Equal(t, 14, fb.Len())
	assert.True(t, fb.Contains("with"))
	assert.False(t, fb.Contains("because"))

	path := filepath.Join(t.TempDir(), "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("# custom\nFoo\n\nbar\n"), 0o600))
	custom, err := LoadStopwords(path)
	require.NoError(t, err)
	assert.Equal(t, 2, custom.Len())
	assert.True(t, custom.Contains("foo"))

	_, err = LoadStopwords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

// TestStopwordsDigest ignores order and case but not membership.
func TestStopwordsDigest(t *testing.T) {
	a := NewStopwords([]string{"the", "and"})
	assert.Equal(t, a.Digest(), NewStopwords([]string{"AND", "the"}).Digest())
	assert.NotEqual(t, a.Digest(), NewStopwords([]string{"the"}).Digest())
	assert.NotEqual(t, EnglishStopwords().Digest(), Fallback().Digest())
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
