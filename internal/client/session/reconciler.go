package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/logging"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
)

// TokenStore receives the backend bearer token.
type TokenStore interface {
	SetToken(ctx context.Context, token string) error
}

type Reconciler struct {
	provider identity.Provider
	gateway  client.Client
	tokens   TokenStore
	log      logging.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	session    Session
	seq        uint64
	cancelPass context.CancelFunc
	subs       map[uint64]func(Session)
	nextSub    uint64
	started    bool
	closed     bool
	// held counts explicit operations in progress. Provider events they
	// cause are not reconciled separately; the operation establishes itself.
	held int
	// missed records an event that arrived while held.
	missed bool
	// committed is the seq of the last successful commit.
	committed uint64

	// publishMu keeps commits and their notifications in order.
	publishMu sync.Mutex
	// installMu orders token installs of concurrent passes.
	installMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once

	baseCtx    context.Context
	baseCancel context.CancelFunc
	sub        *identity.Subscription
	wg         sync.WaitGroup
}

func NewReconciler(provider identity.Provider, gateway client.Client, tokens TokenStore, log logging.Logger, m *metrics.Metrics) (*Reconciler, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if gateway == nil {
		return nil, errors.New("backend gateway is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if log == nil {
		log = logging.Discard()
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Reconciler{
		provider:   provider,
		gateway:    gateway,
		tokens:     tokens,
		log:        log,
		metrics:    m,
		session:    Session{State: StateUnknown, Loading: true},
		subs:       make(map[uint64]func(Session)),
		ready:      make(chan struct{}),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}, nil
}

// Start subscribes to provider session changes and launches the initial
// pass. Use WaitReady to wait for its result.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.New("reconciler is closed")
	}
	if r.started {
		r.mu.Unlock()
		return errors.New("reconciler already started")
	}
	r.started = true
	r.mu.Unlock()

	r.sub = r.provider.OnSessionChange(r.onSessionChange)
	r.log.Debug(ctx, "session reconciler started")
	r.spawnPass("start")
	return nil
}

// Close stops listening and waits for in-flight passes to return.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.sub.Unsubscribe()
	r.baseCancel()
	r.wg.Wait()
	return nil
}

// Session returns a copy of the current session.
func (r *Reconciler) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.clone()
}

// Subscribe registers fn for every published session. fn must not call
// back into the Reconciler's mutating methods.
func (r *Reconciler) Subscribe(fn func(Session)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
		})
	}
}

// WaitReady blocks until the first pass has completed.
func (r *Reconciler) WaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) onSessionChange(ev identity.Event) {
	r.spawnPass(ev.Kind.String())
}

// spawnPass numbers a new pass synchronously, so passes are ordered by the
// events that caused them, and runs it in the background.
func (r *Reconciler) spawnPass(trigger string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.held > 0 {
		r.missed = true
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	seq := r.nextSeqLocked(cancel)
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()
		r.reconcile(ctx, seq, trigger)
	}()
}

// hold suppresses event-driven passes until the returned release is called.
// If events were suppressed and the held operations committed nothing, or
// left an authenticated session the provider no longer backs, release runs
// one pass to catch up.
func (r *Reconciler) hold() (release func()) {
	r.mu.Lock()
	r.held++
	start := r.seq
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.held--
			missed := r.held == 0 && r.missed
			if r.held == 0 {
				r.missed = false
			}
			stale := r.committed <= start
			authenticated := r.session.State == StateAuthenticated
			r.mu.Unlock()

			if missed && (stale || (authenticated && !r.provider.HasSession())) {
				r.spawnPass("missed_event")
			}
		})
	}
}

// beginExplicit numbers an explicit operation. It cancels any in-flight pass.
func (r *Reconciler) beginExplicit() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextSeqLocked(nil)
}

func (r *Reconciler) nextSeqLocked(cancel context.CancelFunc) uint64 {
	if r.cancelPass != nil {
		r.cancelPass()
	}
	r.cancelPass = cancel
	r.seq++
	return r.seq
}

func (r *Reconciler) isCurrent(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq == seq
}

func (r *Reconciler) reconcile(ctx context.Context, seq uint64, trigger string) {
	log := r.log.With("seq", seq, "trigger", trigger)

	if !r.provider.HasSession() {
		r.clear(ctx, seq)
		r.outcome(ctx, log, seq, metrics.OutcomeUnauthenticated)
		return
	}

	token, err := r.provider.Token(ctx)
	if err != nil {
		log.Warn(ctx, "failed to get provider token", "error", err)
		r.clear(ctx, seq)
		r.outcome(ctx, log, seq, metrics.OutcomeFailed)
		return
	}

	if !r.installToken(ctx, seq, token) {
		r.outcome(ctx, log, seq, metrics.OutcomeSuperseded)
		return
	}

	user, err := r.gateway.Me(ctx)
	_, outcome, err := r.establish(ctx, seq, token, user, err)
	if err != nil && outcome == metrics.OutcomeFailed {
		log.Warn(ctx, "failed to load user record", "error", err)
	}
	r.outcome(ctx, log, seq, outcome)
}

func (r *Reconciler) outcome(ctx context.Context, log logging.Logger, seq uint64, outcome string) {
	if outcome != metrics.OutcomeSuperseded && !r.isCurrent(seq) {
		outcome = metrics.OutcomeSuperseded
	}
	r.metrics.ObserveReconciliation(outcome)
	if outcome == metrics.OutcomeSuperseded {
		log.Debug(ctx, "reconciliation superseded")
		return
	}
	log.Info(ctx, "session reconciled", "outcome", outcome)
}

// establish applies the approval gate to a user record fetched with token.
// It returns the published user, the outcome label and, for any outcome but
// authenticated, the error an explicit caller should see.
func (r *Reconciler) establish(ctx context.Context, seq uint64, token string, user *models.User, fetchErr error) (*models.User, string, error) {
	switch {
	case fetchErr != nil:
		r.clear(ctx, seq)
		return nil, metrics.OutcomeFailed, fetchErr
	case user == nil:
		r.clear(ctx, seq)
		return nil, metrics.OutcomeFailed, ErrNoUser
	}

	switch user.AccountStatus {
	case models.AccountStatusApproved:
		published := user.Clone()
		if !r.commit(seq, func(s *Session) {
			s.State = StateAuthenticated
			s.Token = token
			s.User = published
		}) {
			return nil, metrics.OutcomeSuperseded, ErrSuperseded
		}
		return user.Clone(), metrics.OutcomeAuthenticated, nil

	case models.AccountStatusPending, models.AccountStatusRejected:
		authErr := approvalError(user.AccountStatus, false, user.RejectionReason, "", user.Clone())
		outcome := metrics.OutcomePending
		if authErr.Kind == KindAccountRejected {
			outcome = metrics.OutcomeRejected
		}
		r.clear(ctx, seq)
		r.log.Info(ctx, "signing out unapproved account", "status", user.AccountStatus, "user_id", user.ID)
		if err := r.provider.SignOut(ctx); err != nil {
			r.log.Warn(ctx, "forced sign-out failed", "error", err)
		}
		return nil, outcome, authErr

	default:
		r.log.Warn(ctx, "unknown account status, treating as not approved", "status", user.AccountStatus)
		r.clear(ctx, seq)
		return nil, metrics.OutcomeUnauthenticated, ErrNotApproved
	}
}

// clear drops the bearer token and the user, if seq is still current.
func (r *Reconciler) clear(ctx context.Context, seq uint64) bool {
	if !r.installToken(ctx, seq, "") {
		return false
	}
	return r.commit(seq, func(s *Session) {
		s.State = StateUnauthenticated
		s.Token = ""
		s.User = nil
	})
}

func (r *Reconciler) installToken(ctx context.Context, seq uint64, token string) bool {
	r.installMu.Lock()
	defer r.installMu.Unlock()

	if !r.isCurrent(seq) {
		return false
	}
	if err := r.tokens.SetToken(ctx, token); err != nil {
		// The in-memory copy is already in place; only persistence failed.
		r.log.Warn(ctx, "failed to persist bearer token", "error", err)
	}
	return true
}

// commit applies fn to the session and notifies subscribers, unless a newer
// pass or operation has started since seq was issued.
func (r *Reconciler) commit(seq uint64, fn func(*Session)) bool {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	r.mu.Lock()
	if r.seq != seq {
		r.mu.Unlock()
		return false
	}
	fn(&r.session)
	r.session.Loading = false
	r.committed = seq
	snapshot, subs := r.snapshotLocked()
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
	notify(snapshot, subs)
	return true
}

// publish republishes the current session without a sequence check.
func (r *Reconciler) publish(fn func(*Session) bool) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	r.mu.Lock()
	if !fn(&r.session) {
		r.mu.Unlock()
		return
	}
	snapshot, subs := r.snapshotLocked()
	r.mu.Unlock()

	notify(snapshot, subs)
}

func (r *Reconciler) snapshotLocked() (Session, []func(Session)) {
	subs := make([]func(Session), 0, len(r.subs))
	for id := uint64(0); id < r.nextSub; id++ {
		if fn, ok := r.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return r.session, subs
}

func notify(s Session, subs []func(Session)) {
	for _, fn := range subs {
		fn(s.clone())
	}
}
