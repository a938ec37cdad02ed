// Package loader fetches avatar models and textures asynchronously.
//
// Every model request is stamped with a strictly increasing token. Only the
// latest request may commit its result; older ones are cancelled and their
// models disposed as soon as they arrive.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/model"
)

// ErrSuperseded is returned for a request overtaken by a newer one.
var ErrSuperseded = errors.New("load superseded")

// Source produces a decoded model for a URL.
type Source interface {
	Load(ctx context.Context, url string) (*model.Model, error)
}

// GLTFSource fetches bytes and decodes them as glTF/GLB.
type GLTFSource struct {
	Fetcher Fetcher
	Decoder model.Decoder
}

// Load implements Source.
func (s *GLTFSource) Load(ctx context.Context, url string) (*model.Model, error) {
	data, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	dec := s.Decoder
	if dec.Fetch == nil {
		dec.Fetch = s.Fetcher.Fetch
	}
	return dec.Decode(ctx, data, url)
}

// Request identifies one model load.
type Request struct {
	Token uint64
	URL   string
}

// CommitFunc receives the outcome of the current request while the
// loader's lock is held. Returning an error rejects the model, which is
// then disposed.
type CommitFunc func(req Request, m *model.Model, err error) error

// Hooks observe the request lifecycle. Nil fields are skipped.
type Hooks struct {
	Issued    func(Request)
	Discarded func(Request)
	Failed    func(Request, error)
	Loaded    func(Request, time.Duration)
}

// ModelLoader issues model loads with last-token-wins semantics.
//
// Load, Invalidate and the accessors must be called with the shared lock
// held. Completions acquire the same lock before comparing tokens, so a
// stale result can never interleave with a newer request.
type ModelLoader struct {
	source Source
	lock   sync.Locker
	log    *zap.Logger
	hooks  Hooks

	latest  uint64
	loading string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a loader. lock is the owner's state lock.
func New(source Source, lock sync.Locker, log *zap.Logger, hooks Hooks) *ModelLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelLoader{source: source, lock: lock, log: log, hooks: hooks}
}

// Latest returns the most recently issued token.
func (l *ModelLoader) Latest() uint64 {
	return l.latest
}

// LoadingURL returns the URL of the in-flight current request, if any.
func (l *ModelLoader) LoadingURL() (string, bool) {
	return l.loading, l.loading != ""
}

// Load issues a new request for url, cancelling the previous one. commit
// runs once with the result if the request is still current when it
// completes.
func (l *ModelLoader) Load(ctx context.Context, url string, commit CommitFunc) *Pending {
	if l.cancel != nil {
		l.cancel()
	}
	l.latest++
	req := Request{Token: l.latest, URL: url}
	l.loading = url

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	p := newPending(req)
	if l.hooks.Issued != nil {
		l.hooks.Issued(req)
	}
	l.log.Debug("model load issued", zap.Uint64("token", req.Token), zap.String("url", url))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		start := time.Now()
		m, err := l.source.Load(ctx, url)
		l.finish(req, m, err, time.Since(start), commit, p)
	}()
	return p
}

func (l *ModelLoader) finish(req Request, m *model.Model, err error, took time.Duration, commit CommitFunc, p *Pending) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if req.Token != l.latest {
		m.Dispose()
		if l.hooks.Discarded != nil {
			l.hooks.Discarded(req)
		}
		l.log.Debug("discarding superseded load", zap.Uint64("token", req.Token), zap.String("url", req.URL))
		p.resolve(nil, ErrSuperseded)
		return
	}

	l.loading = ""
	l.cancel = nil
	if err != nil {
		err = fmt.Errorf("loading model %s: %w", req.URL, err)
		if l.hooks.Failed != nil {
			l.hooks.Failed(req, err)
		}
		l.log.Error("model load failed", zap.String("url", req.URL), zap.Error(err))
		if commit != nil {
			commit(req, nil, err)
		}
		p.resolve(nil, err)
		return
	}

	if commit != nil {
		if cerr := commit(req, m, nil); cerr != nil {
			m.Dispose()
			p.resolve(nil, cerr)
			return
		}
	}
	if l.hooks.Loaded != nil {
		l.hooks.Loaded(req, took)
	}
	l.log.Info("model loaded", zap.String("url", req.URL), zap.Duration("took", took))
	p.resolve(m, nil)
}

// Invalidate supersedes any in-flight request without issuing a new one.
func (l *ModelLoader) Invalidate() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.latest++
	l.loading = ""
}

// Wait blocks until every issued request has completed. It must be called
// without the lock held.
func (l *ModelLoader) Wait() {
	l.wg.Wait()
}

// Pending is the deferred result of a request.
type Pending struct {
	Request

	done  chan struct{}
	model *model.Model
	err   error
}

func newPending(req Request) *Pending {
	return &Pending{Request: req, done: make(chan struct{})}
}

func (p *Pending) resolve(m *model.Model, err error) {
	p.model, p.err = m, err
	close(p.done)
}

// Done is closed once the request has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request completes or ctx ends. The returned model
// is owned by whoever committed it.
func (p *Pending) Wait(ctx context.Context) (*model.Model, error) {
	select {
	case <-p.done:
		return p.model, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
