// Package sync implements the read-model synchronization loop: cache-first
// fetches, event listeners, and the debounced refresh coordinator that
// keeps the local projection converging on backend truth.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/org/consentd/internal/bus"
	"github.com/org/consentd/internal/cache"
	"github.com/org/consentd/internal/mirror"
	"github.com/org/consentd/internal/store"
	"github.com/org/consentd/pkg/models"
	"github.com/rs/zerolog/log"
)

// Backend is the slice of the backend client the sync loop needs.
type Backend interface {
	GetPending(ctx context.Context, userID string) ([]*models.PendingConsentRequest, error)
	GetAuditHistory(ctx context.Context, userID string, page, pageSize int) ([]*models.AuditLogEntry, error)
	GetActive(ctx context.Context, userID, token string) ([]*models.ActiveConsent, error)
	Approve(ctx context.Context, requestID, token string) error
	Deny(ctx context.Context, requestID, token string) error
	Revoke(ctx context.Context, scope, token string) error
}

// Session exposes the locally persisted session to the sync loop.
type Session interface {
	Token() string
	UserID() string
}

// Targets selects which read-model collections a refresh round touches.
type Targets uint8

const (
	TargetPending Targets = 1 << iota
	TargetActive
	TargetAudit

	TargetAll = TargetPending | TargetActive | TargetAudit
)

// Debounce quiet windows per trigger source. The stream window is shorter
// because stream events are lower-latency and more frequent than push
// notifications.
const (
	PushQuietWindow   = 600 * time.Millisecond
	StreamQuietWindow = 300 * time.Millisecond
	ActionQuietWindow = 100 * time.Millisecond
)

const auditPageSize = 100

// Options tunes the engine. Zero values take the defaults above; tests
// shrink the windows.
type Options struct {
	PushWindow   time.Duration
	StreamWindow time.Duration
	ActionWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.PushWindow == 0 {
		o.PushWindow = PushQuietWindow
	}
	if o.StreamWindow == 0 {
		o.StreamWindow = StreamQuietWindow
	}
	if o.ActionWindow == 0 {
		o.ActionWindow = ActionQuietWindow
	}
	return o
}

// Engine owns the synchronization loop for one user's consent dashboard
// state. It is single-writer per collection: every refresh round replaces
// whole collections, so overlapping rounds only ever race whole snapshots
// (last response wins, self-correcting on the next event).
type Engine struct {
	backend Backend
	session Session
	cache   *cache.Store
	model   *store.ReadModel
	signals *bus.Bus
	mirror  mirror.Mirror

	debPush   *Debouncer
	debStream *Debouncer
	debAction *Debouncer

	mu             gosync.Mutex
	pendingTargets Targets
	stopped        bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// NewEngine wires an Engine. Run must be called before events flow.
func NewEngine(backend Backend, session Session, c *cache.Store, model *store.ReadModel, signals *bus.Bus, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		backend: backend,
		session: session,
		cache:   c,
		model:   model,
		signals: signals,
	}
	e.debPush = NewDebouncer(opts.PushWindow, func() { e.flush("push") })
	e.debStream = NewDebouncer(opts.StreamWindow, func() { e.flush("stream") })
	e.debAction = NewDebouncer(opts.ActionWindow, func() { e.flush("action") })
	return e
}

// AttachMirror enables the local audit mirror. Fetched audit entries are
// appended fire-and-forget; mirror failures never break the sync loop.
func (e *Engine) AttachMirror(m mirror.Mirror) {
	e.mirror = m
}

// Run starts the listeners and performs the initial reconciliation:
// cache-first paint for instant state, then a forced refresh against the
// backend of record. It returns after wiring; stop with Stop.
func (e *Engine) Run(ctx context.Context, events <-chan models.ConsentEvent) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	pushCh, cancelPush := e.signals.Subscribe(bus.PushNotification)
	actionCh, cancelAction := e.signals.Subscribe(bus.ActionComplete)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancelPush()
		defer cancelAction()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-pushCh:
				e.OnPush()
			case ev := <-actionCh:
				e.OnActionComplete(ev.Action)
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				e.OnStreamEvent(ev)
			}
		}
	}()

	// Instant paint from cache, then reconcile in the background.
	e.refresh(e.ctx, TargetAll, false)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.refreshRound(TargetAll, "startup")
	}()
}

// Stop tears the engine down: debounce timers are cancelled so no timer
// fires into a stopped engine, and late fetch results are discarded by
// the read model.
func (e *Engine) Stop() {
	e.debPush.Stop()
	e.debStream.Stop()
	e.debAction.Stop()
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.model.Close()
	e.wg.Wait()
}

// OnPush handles an out-of-process push notification. The payload is
// opaque; only its arrival matters. All three collections refresh after
// the push quiet window.
func (e *Engine) OnPush() {
	e.addTargets(TargetAll)
	e.debPush.Trigger()
}

// OnActionComplete handles the local action-completion signal raised
// after approve/deny/revoke succeeds.
func (e *Engine) OnActionComplete(action string) {
	e.addTargets(TargetAll)
	e.debAction.Trigger()
}

// OnStreamEvent handles one typed consent lifecycle event, scheduling a
// selective refresh. Events in a burst accumulate their targets, so a
// coalesced round covers everything the burst touched.
func (e *Engine) OnStreamEvent(ev models.ConsentEvent) {
	streamEventsTotal.WithLabelValues(ev.Action).Inc()

	if ev.Action == models.ActionRevoked && models.IsOwnerScope(ev.Scope) {
		// The owner's master grant was revoked remotely; the rest of the
		// application must force re-authentication.
		log.Warn().Str("scope", ev.Scope).Msg("owner grant revoked, requesting vault lock")
		e.signals.Publish(bus.Event{
			Kind:   bus.VaultLockRequested,
			Reason: "owner grant revoked",
		})
	}

	e.addTargets(targetsFor(ev.Action))
	e.debStream.Trigger()
}

// targetsFor maps a lifecycle action to the collections it can change.
func targetsFor(action string) Targets {
	switch action {
	case models.ActionRequested:
		return TargetPending | TargetAudit
	case models.ActionConsentGranted:
		return TargetAll
	case models.ActionConsentDenied, models.ActionTimeout, models.ActionTimedOut:
		return TargetPending | TargetAudit
	case models.ActionRevoked:
		return TargetActive | TargetAudit
	default:
		// Unknown actions refresh everything; over-fetching is safe.
		return TargetAll
	}
}

func (e *Engine) addTargets(t Targets) {
	e.mu.Lock()
	e.pendingTargets |= t
	e.mu.Unlock()
}

// flush runs one refresh round for the accumulated targets. Events always
// force-refresh: they signal that backend state definitely changed, so
// serving the cache would reintroduce exactly the staleness the event
// invalidated. A timer callback already executing when Stop runs finds
// the stopped flag set and leaves the WaitGroup alone.
func (e *Engine) flush(trigger string) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	targets := e.pendingTargets
	e.pendingTargets = 0
	if targets == 0 {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()
	go func() {
		defer e.wg.Done()
		refreshesTotal.WithLabelValues(trigger).Inc()
		e.refresh(e.ctx, targets, true)
	}()
}

// Refresh runs the selected fetches synchronously. Exposed for the manual
// refresh endpoint.
func (e *Engine) Refresh(ctx context.Context, targets Targets, force bool) {
	refreshesTotal.WithLabelValues("manual").Inc()
	e.refresh(ctx, targets, force)
}

func (e *Engine) refreshRound(targets Targets, trigger string) {
	refreshesTotal.WithLabelValues(trigger).Inc()
	e.refresh(e.ctx, targets, true)
}

func (e *Engine) refresh(ctx context.Context, targets Targets, force bool) {
	if targets&TargetPending != 0 {
		e.fetchPending(ctx, force)
	}
	if targets&TargetActive != 0 {
		e.fetchActive(ctx, force)
	}
	if targets&TargetAudit != 0 {
		e.fetchAudit(ctx, force)
	}
}

// fetchPending reconciles the pending-request collection. Background
// failures are logged and swallowed: stale-but-available beats an error
// banner for a status dashboard.
func (e *Engine) fetchPending(ctx context.Context, force bool) {
	userID := e.session.UserID()
	if userID == "" {
		fetchesTotal.WithLabelValues("pending", "skipped").Inc()
		return
	}
	key := cache.PendingKey(userID)
	if !force {
		if v, ok := e.cache.Get(key); ok {
			if list, ok := v.([]*models.PendingConsentRequest); ok {
				e.model.SetPending(list)
				fetchesTotal.WithLabelValues("pending", "hit").Inc()
				return
			}
		}
	}
	list, err := e.backend.GetPending(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("pending refresh failed, keeping stale state")
		fetchesTotal.WithLabelValues("pending", "error").Inc()
		return
	}
	if e.model.SetPending(list) {
		e.cache.Set(key, list, cache.TTLShort)
	}
	fetchesTotal.WithLabelValues("pending", "fetched").Inc()
}

// fetchActive reconciles the active-consent collection. Listing active
// grants requires authenticated owner context: with no bearer token there
// is nothing to fetch, which is not an error.
func (e *Engine) fetchActive(ctx context.Context, force bool) {
	userID := e.session.UserID()
	token := e.session.Token()
	if userID == "" || token == "" {
		fetchesTotal.WithLabelValues("active", "skipped").Inc()
		return
	}
	key := cache.ActiveKey(userID)
	if !force {
		if v, ok := e.cache.Get(key); ok {
			if list, ok := v.([]*models.ActiveConsent); ok {
				e.model.SetActive(list)
				fetchesTotal.WithLabelValues("active", "hit").Inc()
				return
			}
		}
	}
	list, err := e.backend.GetActive(ctx, userID, token)
	if err != nil {
		log.Warn().Err(err).Msg("active refresh failed, keeping stale state")
		fetchesTotal.WithLabelValues("active", "error").Inc()
		return
	}
	if e.model.SetActive(list) {
		e.cache.Set(key, list, cache.TTLShort)
	}
	fetchesTotal.WithLabelValues("active", "fetched").Inc()
}

// fetchAudit reconciles the audit collection.
func (e *Engine) fetchAudit(ctx context.Context, force bool) {
	userID := e.session.UserID()
	if userID == "" {
		fetchesTotal.WithLabelValues("audit", "skipped").Inc()
		return
	}
	key := cache.AuditKey(userID)
	if !force {
		if v, ok := e.cache.Get(key); ok {
			if list, ok := v.([]*models.AuditLogEntry); ok {
				e.model.SetAudit(list)
				fetchesTotal.WithLabelValues("audit", "hit").Inc()
				return
			}
		}
	}
	list, err := e.backend.GetAuditHistory(ctx, userID, 1, auditPageSize)
	if err != nil {
		log.Warn().Err(err).Msg("audit refresh failed, keeping stale state")
		fetchesTotal.WithLabelValues("audit", "error").Inc()
		return
	}
	if e.model.SetAudit(list) {
		e.cache.Set(key, list, cache.TTLShort)
		if e.mirror != nil {
			if err := e.mirror.Append(ctx, list); err != nil {
				log.Warn().Err(err).Msg("audit mirror append failed")
			}
		}
	}
	fetchesTotal.WithLabelValues("audit", "fetched").Inc()
}
