// Package scoring ranks passages by semantic similarity to a topic. A
// Service gets the shared model from a provider, embeds the topic and all
// passages in one batch and scores each passage by cosine similarity.
package scoring

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

// ModelSource hands out the loaded embedding model.
type ModelSource interface {
	Get(ctx context.Context) (embedding.Model, error)
}

// Service scores passages against a topic.
type Service struct {
	models      ModelSource
	batcher     *Batcher
	ranker      Ranker
	maxPassages int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMaxPassages rejects requests with more than n passages. n <= 0 means no limit.
func WithMaxPassages(n int) Option {
	return func(s *Service) {
		s.maxPassages = n
	}
}

// NewService returns a Service that takes its model from models.
func NewService(models ModelSource, opts ...Option) *Service {
	s := &Service{
		models:  models,
		batcher: NewBatcher(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Score returns one ScoredPassage per passage, in input order. On failure it
// returns a nil slice and an *Error; partial results are never returned.
func (s *Service) Score(ctx context.Context, topic string, passages []string) ([]ScoredPassage, error) {
	start := time.Now()
	results, err := s.score(ctx, topic, passages)
	fields := []zap.Field{
		zap.Int("topic_len", len(topic)),
		zap.Int("passages", len(passages)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("score failed", append(fields, zap.Stringer("kind", KindOf(err)), zap.Error(err))...)
		return nil, err
	}
	s.logger.Debug("scored passages", fields...)
	return results, nil
}

func (s *Service) score(ctx context.Context, topic string, passages []string) ([]ScoredPassage, error) {
	if err := s.validate(topic, passages); err != nil {
		return nil, err
	}

	model, err := s.models.Get(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindCanceled, Message: "scoring canceled while loading model", Err: err}
		}
		return nil, newError(KindModelLoadFailure, err, "failed to load embedding model")
	}

	topicVec, passageVecs, err := s.batcher.Embed(ctx, model, topic, passages)
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(topicVec, passageVecs, passages), nil
}

func (s *Service) validate(topic string, passages []string) error {
	if strings.TrimSpace(topic) == "" {
		return newError(KindInvalidRequest, nil, "topic must not be empty")
	}
	if !utf8.ValidString(topic) {
		return newError(KindInvalidRequest, nil, "topic is not valid UTF-8")
	}
	if s.maxPassages > 0 && len(passages) > s.maxPassages {
		return newError(KindInvalidRequest, nil, "too many passages: %d (max %d)", len(passages), s.maxPassages)
	}
	for i, p := range passages {
		if !utf8.ValidString(p) {
			return newError(KindInvalidRequest, nil, "passage %d is not valid UTF-8", i)
		}
	}
	return nil
}
