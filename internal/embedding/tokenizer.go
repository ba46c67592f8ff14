package embedding

import (
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// BERT special token IDs used by the fallback tokenizer.
const (
	clsTokenID = 101
	sepTokenID = 102
)

// Encoding is an unpadded tokenized sequence for BERT-style models.
type Encoding struct {
	IDs           []int64
	AttentionMask []int64
	TypeIDs       []int64
}

// Len returns the number of tokens.
func (e Encoding) Len() int { return len(e.IDs) }

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (Encoding, error)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces [CLS] words... [SEP], at most maxTokens long.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (Encoding, error) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	if maxTokens < 2 {
		maxTokens = 2
	}
	words := SplitWords(text)
	n := len(words) + 2
	if n > maxTokens {
		n = maxTokens
	}
	enc := Encoding{
		IDs:           make([]int64, n),
		AttentionMask: make([]int64, n),
		TypeIDs:       make([]int64, n),
	}
	enc.IDs[0] = clsTokenID
	for i := 1; i < n-1; i++ {
		enc.IDs[i] = int64(HashString(words[i-1]) % 30000)
	}
	enc.IDs[n-1] = sepTokenID
	for i := range enc.AttentionMask {
		enc.AttentionMask[i] = 1
	}
	return enc, nil
}

// WordPieceTokenizer wraps a HuggingFace tokenizer.json (the one shipped with
// the sentence-transformers model) so ONNX inputs match the model vocabulary.
type WordPieceTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewWordPieceTokenizer loads a tokenizer.json file.
func NewWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &WordPieceTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens and truncates to maxTokens, keeping the final [SEP].
func (w *WordPieceTokenizer) Tokenize(text string, maxTokens int) (Encoding, error) {
	en, err := w.tk.EncodeSingle(text, true)
	if err != nil {
		return Encoding{}, fmt.Errorf("tokenize: %w", err)
	}
	ids := en.Ids
	n := len(ids)
	if maxTokens > 0 && n > maxTokens {
		n = maxTokens
	}
	enc := Encoding{
		IDs:           make([]int64, n),
		AttentionMask: make([]int64, n),
		TypeIDs:       make([]int64, n),
	}
	for i := 0; i < n; i++ {
		enc.IDs[i] = int64(ids[i])
		enc.AttentionMask[i] = 1
		if i < len(en.TypeIds) {
			enc.TypeIDs[i] = int64(en.TypeIds[i])
		}
	}
	if n < len(ids) && n > 0 {
		enc.IDs[n-1] = int64(ids[len(ids)-1])
	}
	return enc, nil
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
