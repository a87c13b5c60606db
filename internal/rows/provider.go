package rows

import (
	"log/slog"
	"sync"

	"github.com/runger/sessiondeck/internal/liveq"
	"github.com/runger/sessiondeck/internal/storage"
	"github.com/runger/sessiondeck/internal/stream"
)

// Pair is the provider's unit of emission: the unfiltered view and the
// filtered candidate, produced atomically from the same library state.
type Pair struct {
	All      Snapshot
	Filtered Snapshot
}

// Provider maintains the two live row views. The "all" view observes the
// whole library; the "filtered" view observes the current filter
// predicate with the pinned identity OR'd in. Each observer feeds a
// session Var; the pair feed is the combine-latest of both sides mapped
// through Build, so every change on either side emits a fresh Pair.
type Provider struct {
	repo   storage.Repository
	pinned stream.Source[string]
	logger *slog.Logger

	allSessions      *stream.Var[[]storage.Session]
	filteredSessions *stream.Var[[]storage.Session]

	mu          sync.Mutex
	started     bool
	latest      Pair
	allObs      *liveq.Observer
	filteredObs *liveq.Observer
	filter      func(storage.Session) bool
	cancelPairs stream.CancelFunc
	next        int
	subs        map[int]func(Pair)
}

// NewProvider creates a provider over repo. pinned may be nil.
func NewProvider(repo storage.Repository, pinned stream.Source[string], logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		repo:   repo,
		pinned: pinned,
		logger: logger,
		subs:   make(map[int]func(Pair)),
	}
}

// Start begins observing the library. Both views deliver synchronously,
// so Latest is valid once Start returns. Starting twice panics.
func (p *Provider) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		panic("rows: Provider started twice")
	}
	p.started = true
	p.mu.Unlock()

	p.allSessions = stream.NewVar[[]storage.Session](nil)
	p.filteredSessions = stream.NewVar[[]storage.Session](nil)

	p.allObs = liveq.New(p.repo, nil, nil, p.logger)
	p.allObs.Observe(p.allSessions.Set)
	p.observeFiltered(nil)

	// Both Vars hold their first real value by now, so subscribing the
	// combined feed publishes the initial pair synchronously.
	pairs := stream.Combine(
		stream.Map[[]storage.Session, Snapshot](p.allSessions, Build),
		stream.Map[[]storage.Session, Snapshot](p.filteredSessions, Build),
	)
	p.cancelPairs = pairs.Subscribe(func(pr stream.Pair[Snapshot, Snapshot]) {
		p.publish(Pair{All: pr.A, Filtered: pr.B})
	})
}

// Stop cancels the pair feed and both observers.
func (p *Provider) Stop() {
	p.mu.Lock()
	allObs, filteredObs := p.allObs, p.filteredObs
	cancelPairs := p.cancelPairs
	p.cancelPairs = nil
	p.mu.Unlock()

	if cancelPairs != nil {
		cancelPairs()
	}
	if allObs != nil {
		allObs.Cancel()
	}
	if filteredObs != nil {
		filteredObs.Cancel()
	}
}

// SetFilter replaces the filter predicate. A nil predicate clears the
// filter. The filtered view re-emits synchronously.
func (p *Provider) SetFilter(pred func(storage.Session) bool) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		panic("rows: SetFilter before Start")
	}
	p.filter = pred
	old := p.filteredObs
	p.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
	p.observeFiltered(pred)
}

// ClearFilter drops the active filter. Used when a deferred selection
// cannot be satisfied by the filtered view.
func (p *Provider) ClearFilter() {
	p.SetFilter(nil)
}

// observeFiltered builds a fresh single-use observer for the filtered side.
func (p *Provider) observeFiltered(pred func(storage.Session) bool) {
	obs := liveq.New(p.repo, pred, p.pinned, p.logger)

	p.mu.Lock()
	p.filteredObs = obs
	p.mu.Unlock()

	obs.Observe(p.filteredSessions.Set)
}

// publish records the pair and fans it out to subscribers.
func (p *Provider) publish(pair Pair) {
	p.mu.Lock()
	p.latest = pair
	fns := make([]func(Pair), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(pair)
	}
}

// Subscribe registers fn for snapshot pairs. The current pair is
// delivered synchronously before Subscribe returns.
func (p *Provider) Subscribe(fn func(Pair)) stream.CancelFunc {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		panic("rows: Subscribe before Start")
	}
	id := p.next
	p.next++
	p.subs[id] = fn
	pair := p.latest
	p.mu.Unlock()

	fn(pair)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Pairs exposes the emission feed as a stream source, so consumers can
// compose operators over it.
func (p *Provider) Pairs() stream.Source[Pair] {
	return stream.Func[Pair](func(fn func(Pair)) stream.CancelFunc {
		return p.Subscribe(fn)
	})
}

// Latest returns the current snapshot pair.
func (p *Provider) Latest() Pair {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// CanDisplay reports whether the identity exists in the "all" view, i.e.
// whether dropping the filter would make it visible.
func (p *Provider) CanDisplay(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest.All.ContainsID(id)
}
