package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bookfinder/internal/logger"
	"bookfinder/internal/metrics"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/query"
)

// ErrClosed is returned by Settle once the controller is closed.
var ErrClosed = errors.New("search: controller closed")

// DefaultDebounce is the quiet period after the last filter change before a search is committed.
const DefaultDebounce = 300 * time.Millisecond

// Fetcher runs one search request. *openlibrary.Client satisfies it.
type Fetcher interface {
	Search(ctx context.Context, req query.Request) (*openlibrary.ResultPage, error)
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler creates debounce timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Status is the controller's coarse state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusError    Status = "error"
)

// State is an immutable snapshot of a controller.
type State struct {
	Filters query.FilterSet `json:"filters"`
	// Page is the last loaded page. It is 0 after the first page of the
	// committed search failed.
	Page    int                    `json:"page"`
	Results []openlibrary.Document `json:"results"`
	// Total is nil until a response carried a numeric count.
	Total   *int   `json:"total"`
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
	HasMore bool   `json:"hasMore"`
	Status  Status `json:"status"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithScheduler replaces the wall-clock timer implementation.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithPageSize sets the limit sent with every request.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.builder = query.Builder{Limit: n} }
}

// WithLogger sets the logger used for controller events.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithContext sets the parent of every fetch context. Values such as the
// request id flow through to the fetcher.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.parent = ctx }
}

// Controller turns a changing FilterSet into a debounced, paginated and
// staleness-checked sequence of fetches. All methods are safe for
// concurrent use.
type Controller struct {
	fetcher  Fetcher
	builder  query.Builder
	debounce time.Duration
	sched    Scheduler
	logger   *logrus.Logger
	parent   context.Context

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	filters   query.FilterSet
	committed query.FilterSet
	timer     Timer
	timerSeq  uint64
	epoch     uint64
	page      int
	results   []openlibrary.Document
	total     *int
	loading   bool
	err       string
	cancel    context.CancelFunc
	closed    bool

	subMu     sync.Mutex
	listeners map[int]func(State)
	nextSub   int
	wake      chan struct{}
}

// New builds a controller in the empty state.
func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		debounce: DefaultDebounce,
		sched:    wallClock{},
		logger:   logrus.StandardLogger(),
		parent:   context.Background(),
		page:     1,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.stop = context.WithCancel(c.parent)
	go c.deliver()
	return c
}

func (c *Controller) log() *logrus.Entry {
	e := logrus.NewEntry(c.logger)
	if id := logger.IDFrom(c.ctx); id != "" {
		e = e.WithField("request_id", id)
	}
	return e
}

// SetFilters replaces the filter set and (re)starts the debounce window.
// The page number carried by fs is ignored; a commit always starts at page 1.
// Setting the filters that are already committed cancels any pending commit.
func (c *Controller) SetFilters(fs query.FilterSet) {
	fs.Page = 0

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.filters = fs
	if c.stopTimerLocked() {
		metrics.DebounceSupersededTotal.Inc()
	}
	if !fs.Equal(c.committed) {
		c.timerSeq++
		seq := c.timerSeq
		c.timer = c.sched.AfterFunc(c.debounce, func() { c.commit(seq) })
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) stopTimerLocked() bool {
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	c.timerSeq++
	return true
}

func (c *Controller) commit(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.timerSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.commitLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) commitLocked() {
	c.epoch++
	c.committed = c.filters
	c.page = 1
	c.log().WithField("filters", c.committed.String()).Debug("search.commit")
	c.startLocked(1)
}

// Flush commits a pending filter change now instead of waiting for the
// debounce window. It reports whether a commit happened.
func (c *Controller) Flush() bool {
	c.mu.Lock()
	if c.closed || c.timer == nil {
		c.mu.Unlock()
		return false
	}
	c.stopTimerLocked()
	c.commitLocked()
	c.mu.Unlock()
	c.notify()
	return true
}

// Settle blocks until no commit is pending and no fetch is in flight, then
// returns that state.
func (c *Controller) Settle(ctx context.Context) (State, error) {
	wake := make(chan struct{}, 1)
	unsubscribe := c.Subscribe(func(State) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		c.mu.Lock()
		done := !c.loading && c.timer == nil
		st := c.snapshotLocked()
		closed := c.closed
		c.mu.Unlock()
		switch {
		case done:
			return st, nil
		case closed:
			return st, ErrClosed
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-c.ctx.Done():
			return st, ErrClosed
		case <-wake:
		}
	}
}

// LoadMore fetches the next page of the committed search and appends it.
// It does nothing while a fetch is in flight or once every known match is
// loaded, and reports whether a fetch was started.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.closed || c.loading || !c.hasMoreLocked() {
		c.mu.Unlock()
		return false
	}
	c.page++
	c.startLocked(c.page)
	c.mu.Unlock()
	c.notify()
	return true
}

// Reset clears filters, results and counters. Pending and in-flight work
// can no longer touch the state.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.cancelLocked()
	c.epoch++
	c.filters = query.FilterSet{}
	c.committed = query.FilterSet{}
	c.page = 1
	c.results = nil
	c.total = nil
	c.loading = false
	c.err = ""
	c.mu.Unlock()
	c.notify()
}

// Close ends the controller's scope: timers stop, fetches are cancelled
// and listeners are dropped. Further calls are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.cancelLocked()
	c.mu.Unlock()

	c.subMu.Lock()
	c.listeners = nil
	c.subMu.Unlock()
	c.stop()
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// startLocked issues the fetch for page of the committed filters. Any
// earlier fetch is cancelled; its response would fail the tag check anyway.
func (c *Controller) startLocked(page int) {
	c.cancelLocked()
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.loading = true
	c.err = ""

	req := c.builder.Build(c.committed, page)
	go c.run(ctx, c.epoch, page, req)
}

func (c *Controller) run(ctx context.Context, epoch uint64, page int, req query.Request) {
	res, err := c.fetcher.Search(ctx, req)

	c.mu.Lock()
	if c.closed || epoch != c.epoch || page != c.page {
		c.mu.Unlock()
		metrics.StaleResponsesTotal.Inc()
		c.log().WithFields(logrus.Fields{"epoch": epoch, "page": page}).Debug("search.stale")
		return
	}
	c.cancelLocked()
	c.loading = false
	if err != nil {
		c.err = err.Error()
		// The next LoadMore retries the page that failed. Page 0 means nothing
		// of the committed search is loaded yet; older results stay visible
		// until its page 1 replaces them.
		c.page = page - 1
		c.log().WithError(err).WithField("page", page).Warn("search.fetch failed")
	} else {
		c.total = res.NumFound
		if page == 1 {
			c.results = append([]openlibrary.Document(nil), res.Docs...)
		} else {
			c.results = append(c.results, res.Docs...)
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) hasMoreLocked() bool {
	if c.page == 0 {
		return true
	}
	return c.total == nil || len(c.results) < *c.total
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Filters: c.filters,
		Page:    c.page,
		Results: append([]openlibrary.Document{}, c.results...),
		Loading: c.loading,
		Err:     c.err,
		HasMore: c.hasMoreLocked(),
		Status:  StatusIdle,
	}
	if c.total != nil {
		n := *c.total
		s.Total = &n
	}
	switch {
	case c.loading:
		s.Status = StatusFetching
	case c.err != "":
		s.Status = StatusError
	}
	return s
}

// Filters returns the latest filter set, committed or still pending.
func (c *Controller) Filters() query.FilterSet { return c.Snapshot().Filters }

// Results returns a copy of the accumulated documents.
func (c *Controller) Results() []openlibrary.Document { return c.Snapshot().Results }

// Loading reports whether a fetch is in flight.
func (c *Controller) Loading() bool { return c.Snapshot().Loading }

// Err returns the message of the last fetch failure, or "".
func (c *Controller) Err() string { return c.Snapshot().Err }

// HasMore reports whether LoadMore may find further results.
func (c *Controller) HasMore() bool { return c.Snapshot().HasMore }

// Subscribe registers fn to receive state after changes. Deliveries happen
// on a separate goroutine and are coalesced: fn always sees the newest state
// and never an older one after a newer one. fn may call back into the
// controller.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.listeners == nil {
		c.listeners = make(map[int]func(State))
	}
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() {
		c.subMu.Lock()
		delete(c.listeners, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) deliver() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}
		s := c.Snapshot()

		c.subMu.Lock()
		fns := make([]func(State), 0, len(c.listeners))
		for _, fn := range c.listeners {
			fns = append(fns, fn)
		}
		c.subMu.Unlock()

		for _, fn := range fns {
			fn(s)
		}
	}
}
