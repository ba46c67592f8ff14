// Package provider owns the process-wide embedding model. The model is loaded
// lazily on first use; concurrent callers share one in-flight load, a
// successful load is kept for the life of the Provider, and a failed load is
// forgotten so the next caller retries.
package provider

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const loadKey = "model"

// Provider lazily loads and hands out a single embedding.Model.
type Provider struct {
	load     embedding.LoaderFunc
	logger   *zap.Logger
	group    singleflight.Group
	model    atomic.Pointer[modelSlot]
	attempts atomic.Int64
	closeMu  sync.Mutex
	closed   bool
}

type modelSlot struct {
	m embedding.Model
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New returns a Provider that calls load on first use.
func New(load embedding.LoaderFunc, opts ...Option) *Provider {
	p := &Provider{load: load}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Get returns the loaded model, loading it if needed. If ctx is done before
// the load finishes, Get returns ctx.Err() while the load continues for
// other waiters.
func (p *Provider) Get(ctx context.Context) (embedding.Model, error) {
	if slot := p.model.Load(); slot != nil {
		return slot.m, nil
	}

	ch := p.group.DoChan(loadKey, func() (any, error) {
		if slot := p.model.Load(); slot != nil {
			return slot.m, nil
		}
		if p.isClosed() {
			return nil, ErrClosed
		}
		n := p.attempts.Add(1)
		p.logger.Debug("model load started", zap.Int64("attempt", n))
		m, err := p.load(context.WithoutCancel(ctx))
		if err != nil {
			p.logger.Warn("model load failed", zap.Int64("attempt", n), zap.Error(err))
			return nil, err
		}
		p.closeMu.Lock()
		defer p.closeMu.Unlock()
		if p.closed {
			_ = m.Close()
			return nil, ErrClosed
		}
		p.model.Store(&modelSlot{m: m})
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(embedding.Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded reports whether a model has been loaded successfully.
func (p *Provider) Loaded() bool {
	return p.model.Load() != nil
}

// Attempts returns how many times the loader has been invoked.
func (p *Provider) Attempts() int {
	return int(p.attempts.Load())
}

// Close closes the loaded model, if any. Later calls to Get fail with ErrClosed.
func (p *Provider) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	slot := p.model.Swap(nil)
	if slot == nil {
		return nil
	}
	return slot.m.Close()
}

func (p *Provider) isClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}
