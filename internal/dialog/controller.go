package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/songrequest/server/internal/domain"
	"github.com/songrequest/server/internal/ratelimit"
)

// Transport delivers dialog output to a chat.
type Transport interface {
	Prompt(ctx context.Context, sessionID string, p Prompt) error
	Notify(ctx context.Context, sessionID, text string) error
}

// Announcer publishes a finished selection.
type Announcer interface {
	Announce(ctx context.Context, sessionID string, track domain.Track) error
}

// sessionEntry serializes one session. refs counts goroutines holding or
// waiting for mu; an entry is only evicted when refs is zero.
type sessionEntry struct {
	mu         sync.Mutex
	refs       int
	sess       Session
	generation uint64
	lastSeen   time.Time
}

// Controller drives sessions through Transition.
//
// Thread safety: Handle may be called concurrently. Calls for the same
// session ID are serialized; different sessions proceed in parallel.
type Controller struct {
	catalog   Catalog
	transport Transport
	announcer Announcer
	labels    Labels
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	// generation is bumped on every catalog replace. Sessions stamped with an
	// older generation hold offers from a previous catalog.
	generation atomic.Uint64
}

// Options configures a Controller.
type Options struct {
	Catalog   Catalog
	Transport Transport
	Announcer Announcer
	Labels    Labels
	// Limiter throttles utterances per session. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
	Logger  *slog.Logger
}

// NewController creates a controller.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		catalog:   opts.Catalog,
		transport: opts.Transport,
		announcer: opts.Announcer,
		labels:    opts.Labels,
		limiter:   opts.Limiter,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*sessionEntry),
	}
}

// Labels returns the labels the controller was built with.
func (c *Controller) Labels() Labels {
	return c.labels
}

// Handle processes one utterance for sessionID.
// An unknown session starts fresh. Only transport and announce failures are
// returned; a failed announce leaves the session at the confirmation step.
func (c *Controller) Handle(ctx context.Context, sessionID, utterance string) error {
	if c.limiter != nil && !c.limiter.Allow(sessionID) {
		c.logger.Debug("utterance dropped by rate limit", "session_id", sessionID)
		return nil
	}

	e := c.acquire(sessionID)
	defer c.release(e)

	current := e.sess
	notice := NoticeNone
	gen := c.generation.Load()
	if e.generation != gen && isNavigating(current.Step) {
		current = NewSession()
		notice = NoticeCatalogUpdated
	}

	next, eff := Transition(current, utterance, c.catalog, c.labels)
	if eff.Notice != NoticeNone {
		notice = eff.Notice
	}

	c.logger.Debug("dialog transition",
		"session_id", sessionID,
		"from", current.Step,
		"to", next.Step,
		"notice", notice,
	)

	if eff.Announce != nil {
		if err := c.announcer.Announce(ctx, sessionID, *eff.Announce); err != nil {
			return fmt.Errorf("announce %q: %w", eff.Announce.Label(), err)
		}
		c.logger.Info("selection announced", "session_id", sessionID, "track", eff.Announce.Label())
	}

	e.sess = next
	e.generation = gen
	e.lastSeen = c.now()

	if text := c.labels.NoticeText(notice); text != "" {
		if err := c.transport.Notify(ctx, sessionID, text); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	if eff.Prompt != nil {
		if err := c.transport.Prompt(ctx, sessionID, *eff.Prompt); err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
	}
	return nil
}

// Reset drops the state of sessionID; its next utterance starts fresh.
func (c *Controller) Reset(sessionID string) {
	e := c.acquire(sessionID)
	e.sess = NewSession()
	c.release(e)
	if c.limiter != nil {
		c.limiter.Forget(sessionID)
	}
}

// OnCatalogReplaced marks every in-flight session as stale. Each one returns
// to the field choice on its next utterance instead of acting on old offers.
func (c *Controller) OnCatalogReplaced() {
	gen := c.generation.Add(1)
	c.logger.Debug("catalog generation advanced", "generation", gen, "sessions", c.Sessions())
}

// Session returns a copy of the state of sessionID.
func (c *Controller) Session(sessionID string) (Session, bool) {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if ok {
		e.refs++
	}
	c.mu.Unlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	sess := e.sess
	e.mu.Unlock()
	c.unref(e)
	return sess, true
}

// Sessions returns the number of tracked sessions.
func (c *Controller) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Prune drops sessions idle for longer than ttl and returns how many were removed.
func (c *Controller) Prune(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.sessions {
		// No holder can touch an entry with zero refs while c.mu is held.
		if e.refs == 0 && e.lastSeen.Before(cutoff) {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes idle sessions every interval until ctx is done.
func (c *Controller) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(ttl); n > 0 {
				c.logger.Debug("pruned idle sessions", "count", n)
			}
		}
	}
}

// acquire returns the locked entry for sessionID, creating it if needed.
func (c *Controller) acquire(sessionID string) *sessionEntry {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		e = &sessionEntry{
			sess:       NewSession(),
			generation: c.generation.Load(),
			lastSeen:   c.now(),
		}
		c.sessions[sessionID] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
	return e
}

// release unlocks an entry obtained from acquire.
func (c *Controller) release(e *sessionEntry) {
	e.mu.Unlock()
	c.unref(e)
}

func (c *Controller) unref(e *sessionEntry) {
	c.mu.Lock()
	e.refs--
	c.mu.Unlock()
}

func isNavigating(step Step) bool {
	switch step {
	case StepAwaitingLetter, StepAwaitingItem, StepAwaitingConfirmation:
		return true
	default:
		return false
	}
}
