// Package passage splits document text into passages small enough to embed.
package passage

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/semlight/pkg/utils"
)

// Passage is one scoring unit cut from a document.
type Passage struct {
	ID    string
	Index int
	Text  string
}

// paragraphBreak matches a blank line (possibly holding whitespace).
var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Splitter cuts text into paragraphs and windows long paragraphs into
// overlapping word chunks.
type Splitter struct {
	maxWords  int
	overlap   int
	minLength int
}

// NewSplitter returns a Splitter producing passages of at most maxWords words
// with overlap words shared between windows. Passages with minLength runes or
// fewer are dropped.
func NewSplitter(maxWords, overlap, minLength int) *Splitter {
	if maxWords <= 0 {
		maxWords = 200
	}
	if overlap < 0 || overlap >= maxWords {
		overlap = 0
	}
	return &Splitter{maxWords: maxWords, overlap: overlap, minLength: minLength}
}

// Split returns the passages of text in order. Each passage ID is prefixed
// with docID.
func (s *Splitter) Split(docID, text string) []Passage {
	var out []Passage
	for _, para := range paragraphBreak.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		for _, chunk := range s.window(utils.CollapseSpace(para)) {
			if utf8.RuneCountInString(chunk) <= s.minLength {
				continue
			}
			out = append(out, Passage{
				ID:    fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
				Index: len(out),
				Text:  chunk,
			})
		}
	}
	return out
}

// window splits one paragraph into windows of maxWords words.
func (s *Splitter) window(para string) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= s.maxWords {
		return []string{para}
	}
	step := s.maxWords - s.overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := min(i+s.maxWords, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// Texts returns the text of each passage.
func Texts(ps []Passage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}
