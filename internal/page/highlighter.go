package page

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultThreshold is the score at or above which a passage is highlighted.
const DefaultThreshold = 0.3

// Scorer scores passages against a topic; *scoring.Service implements it.
type Scorer interface {
	Score(ctx context.Context, topic string, passages []string) ([]scoring.ScoredPassage, error)
}

// Highlighter marks topic-related passages of HTML documents.
type Highlighter struct {
	scorer    Scorer
	threshold float64
	minLength int
	className string
	logger    *zap.Logger
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithThreshold sets the minimum score for a passage to be highlighted.
func WithThreshold(t float64) Option {
	return func(h *Highlighter) { h.threshold = t }
}

// WithMinPassageLength sets the trimmed length a text node must exceed.
func WithMinPassageLength(n int) Option {
	return func(h *Highlighter) { h.minLength = n }
}

// WithClassName sets the class of the highlight wrapper.
func WithClassName(c string) Option {
	return func(h *Highlighter) {
		if c != "" {
			h.className = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Highlighter) { h.logger = l }
}

// NewHighlighter returns a Highlighter that scores passages with scorer.
func NewHighlighter(scorer Scorer, opts ...Option) *Highlighter {
	h := &Highlighter{
		scorer:    scorer,
		threshold: DefaultThreshold,
		minLength: DefaultMinPassageLength,
		className: DefaultClassName,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = utils.OrNop(h.logger)
	return h
}

// ScoredPassage is a page passage with its score and whether it was marked.
type ScoredPassage struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	Highlighted bool    `json:"highlighted"`
}

// Result is the outcome of highlighting one document.
type Result struct {
	HTML        string          `json:"html"`
	Passages    []ScoredPassage `json:"passages"`
	Highlighted int             `json:"highlighted"`
	Cleared     int             `json:"cleared"`
}

// Highlight parses the HTML in r, removes earlier highlights, scores every
// passage against topic in one call and wraps those scoring at least the
// threshold. Scoring errors are returned unchanged.
func (h *Highlighter) Highlight(ctx context.Context, r io.Reader, topic string) (*Result, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	cleared := ClearHighlights(root, h.className)
	passages := ExtractPassages(root, h.minLength)

	scores, err := h.scorer.Score(ctx, topic, Texts(passages))
	if err != nil {
		return nil, err
	}

	res := &Result{Passages: make([]ScoredPassage, len(passages)), Cleared: cleared}
	for i, p := range passages {
		sp := ScoredPassage{ID: p.ID, Text: p.Text, Score: scores[i].Score}
		if sp.Score >= h.threshold {
			wrap(p, h.className, sp.Score)
			sp.Highlighted = true
			res.Highlighted++
		}
		res.Passages[i] = sp
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	res.HTML = buf.String()
	h.logger.Debug("highlighted page",
		zap.Int("passages", len(passages)),
		zap.Int("highlighted", res.Highlighted),
		zap.Int("cleared", cleared))
	return res, nil
}

// Clear removes highlight wrappers from the HTML in r and returns the result.
func (h *Highlighter) Clear(r io.Reader) (string, int, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", 0, fmt.Errorf("parse html: %w", err)
	}
	n := ClearHighlights(root, h.className)
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", 0, fmt.Errorf("render html: %w", err)
	}
	return buf.String(), n, nil
}
