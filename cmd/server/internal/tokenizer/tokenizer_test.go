package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestNewVocabTokenizer(t *testing.T) {
	t.Run("loads newline delimited vocab", func(t *testing.T) {
		tok, err := NewVocabTokenizer(writeVocab(t, "<blank>\n▁xin\n▁chào\nn\n"))
		require.NoError(t, err)
		assert.Equal(t, 4, tok.VocabSize())
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := NewVocabTokenizer(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("rejects vocab without real tokens", func(t *testing.T) {
		_, err := NewVocabTokenizer(writeVocab(t, "<blank>\n"))
		assert.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	tok := NewInMemoryTokenizer([]string{"<blank>", "▁xin", "▁chào", "▁các", "▁bạn", "a"})

	t.Run("joins word pieces with spaces", func(t *testing.T) {
		assert.Equal(t, "xin chào các bạn", tok.Decode([]int{1, 2, 3, 4}))
	})

	t.Run("continuation pieces attach to the previous word", func(t *testing.T) {
		assert.Equal(t, "xina", tok.Decode([]int{1, 5}))
	})

	t.Run("blank and out-of-range ids are skipped", func(t *testing.T) {
		assert.Equal(t, "xin", tok.Decode([]int{0, 1, 99, -3}))
	})

	t.Run("empty sequence yields empty string", func(t *testing.T) {
		assert.Equal(t, "", tok.Decode(nil))
	})

	t.Run("output is NFC normalized", func(t *testing.T) {
		// "chào" decomposed -> "chào" composed
		decomposed := NewInMemoryTokenizer([]string{"<blank>", "▁chào"})
		assert.Equal(t, "chào", decomposed.Decode([]int{1}))
	})
}
