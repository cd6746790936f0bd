// Package tokenizer maps CTC token-id sequences back to text.
package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer maps ordered token-id sequences to text.
type Tokenizer interface {
	// Decode renders a token-id sequence as text. Unknown ids are skipped.
	Decode(ids []int) string

	// VocabSize returns the vocabulary size including the blank at index 0.
	VocabSize() int
}

// wordBoundary is the sentencepiece-style marker some vocabularies use for a
// leading space.
const wordBoundary = "▁"

// VocabTokenizer is backed by a newline-delimited vocabulary file. Line i
// holds token i; line 0 is the CTC blank and is never rendered.
type VocabTokenizer struct {
	tokens []string
}

// NewVocabTokenizer loads a vocabulary file. The first line must be the blank
// token placeholder.
func NewVocabTokenizer(path string) (*VocabTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("vocab %s: need blank plus at least one token, got %d lines", path, len(tokens))
	}

	return &VocabTokenizer{tokens: tokens}, nil
}

// NewInMemoryTokenizer builds a tokenizer from an explicit token list, index 0
// being the blank. Mainly used by tests and embedded deployments.
func NewInMemoryTokenizer(tokens []string) *VocabTokenizer {
	return &VocabTokenizer{tokens: tokens}
}

// Decode implements Tokenizer. Vietnamese text from the acoustic vocabulary
// may arrive in decomposed form, so the result is NFC-normalized.
func (t *VocabTokenizer) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if id <= 0 || id >= len(t.tokens) {
			continue
		}
		piece := t.tokens[id]
		if strings.HasPrefix(piece, wordBoundary) {
			sb.WriteString(" ")
			piece = strings.TrimPrefix(piece, wordBoundary)
		}
		sb.WriteString(piece)
	}
	return norm.NFC.String(strings.TrimSpace(sb.String()))
}

// VocabSize implements Tokenizer.
func (t *VocabTokenizer) VocabSize() int { return len(t.tokens) }
