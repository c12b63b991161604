package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/communityapp/internal/client/securestore"
	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	DefaultIdentityEndpoint    = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenEndpoint = "https://securetoken.googleapis.com/v1"
	DefaultRefreshLead         = 5 * time.Minute
	defaultHTTPTimeout         = 15 * time.Second
	minRefreshDelay            = time.Second
	refreshRetryDelay          = 30 * time.Second
)

var _ Provider = (*FirebaseProvider)(nil)

type FirebaseConfig struct {
	APIKey              string
	IdentityEndpoint    string
	SecureTokenEndpoint string
	// RefreshLead is how long before expiry the ID token is refreshed in the
	// background.
	RefreshLead time.Duration
	HTTPClient  *http.Client
}

// FirebaseProvider talks to the Firebase Auth REST API. The refresh token of
// the current session is kept in the secure store so that Restore can pick
// the session up after a restart.
type FirebaseProvider struct {
	cfg   FirebaseConfig
	http  *http.Client
	store securestore.Store
	log   logging.Logger
	hub   hub

	mu      sync.Mutex
	session *providerSession
	// closed stops any further background refresh.
	closed bool
}

type providerSession struct {
	uid   string
	email string
	src   oauth2.TokenSource
	// timer fires the background refresh. Guarded by FirebaseProvider.mu.
	timer *time.Timer
}

func (s *providerSession) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// persistedSession is what goes to the secure store.
type persistedSession struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
}

func NewFirebaseProvider(cfg FirebaseConfig, store securestore.Store, log logging.Logger) (*FirebaseProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("identity api key is required")
	}
	if store == nil {
		return nil, errors.New("secure store is required")
	}
	if cfg.IdentityEndpoint == "" {
		cfg.IdentityEndpoint = DefaultIdentityEndpoint
	}
	if cfg.SecureTokenEndpoint == "" {
		cfg.SecureTokenEndpoint = DefaultSecureTokenEndpoint
	}
	cfg.IdentityEndpoint = strings.TrimRight(cfg.IdentityEndpoint, "/")
	cfg.SecureTokenEndpoint = strings.TrimRight(cfg.SecureTokenEndpoint, "/")
	if cfg.RefreshLead <= 0 {
		cfg.RefreshLead = DefaultRefreshLead
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if log == nil {
		log = logging.Discard()
	}

	return &FirebaseProvider{cfg: cfg, http: hc, store: store, log: log}, nil
}

func (p *FirebaseProvider) OnSessionChange(fn func(Event)) *Subscription {
	return p.hub.subscribe(fn)
}

func (p *FirebaseProvider) HasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Restore loads a session saved by an earlier process. It does not emit an
// event; the caller reconciles after restoring.
func (p *FirebaseProvider) Restore(ctx context.Context) error {
	raw, err := p.store.GetSecureItem(ctx, common.IdentitySessionKey)
	if err != nil {
		return fmt.Errorf("load identity session: %w", err)
	}
	if raw == nil {
		return nil
	}

	var ps persistedSession
	if err := json.Unmarshal(raw, &ps); err != nil || ps.RefreshToken == "" {
		p.log.Warn(ctx, "discarding unreadable identity session")
		return p.store.DeleteSecureItem(ctx, common.IdentitySessionKey)
	}

	// An empty access token is never valid, so the first Token call refreshes.
	p.install(ps.UID, ps.Email, &oauth2.Token{RefreshToken: ps.RefreshToken})
	p.log.Debug(ctx, "identity session restored", "uid", ps.UID)
	return nil
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return err
	}

	endpoint := p.cfg.IdentityEndpoint + "/accounts:signInWithPassword?key=" + url.QueryEscape(p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp signInResponse
	if err := p.send(req, &resp); err != nil {
		return err
	}

	tok, uid, mail := tokenFromID(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if uid == "" {
		uid = resp.LocalID
	}
	if mail == "" {
		mail = resp.Email
	}

	if err := p.persist(ctx, uid, mail, resp.RefreshToken); err != nil {
		p.log.Warn(ctx, "failed to persist identity session", "error", err)
	}
	p.install(uid, mail, tok)

	p.hub.emit(Event{Kind: EventSignedIn, UID: uid, Email: mail})
	return nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	had := p.session != nil
	if had {
		p.session.stop()
	}
	p.session = nil
	p.mu.Unlock()

	err := p.store.DeleteSecureItem(ctx, common.IdentitySessionKey)
	if had {
		p.hub.emit(Event{Kind: EventSignedOut})
	}
	if err != nil {
		return fmt.Errorf("delete identity session: %w", err)
	}
	return nil
}

func (p *FirebaseProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return "", &Error{Code: CodeNoSession}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tok, err := s.src.Token()
	if err != nil {
		if Code(err) == CodeSessionExpired || Code(err) == CodeUserDisabled || Code(err) == CodeUserNotFound {
			p.log.Info(ctx, "identity session ended by provider", "code", Code(err))
			p.dropSession(ctx, s)
		}
		return "", err
	}
	return tok.AccessToken, nil
}

// Close stops the background refresh. The session itself is kept.
func (p *FirebaseProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.session != nil {
		p.session.stop()
	}
}

// install makes a new current session. Its ID token counts as expired
// RefreshLead before the real expiry, so the background refresh and Token
// agree on when a refresh is due.
func (p *FirebaseProvider) install(uid, email string, tok *oauth2.Token) {
	s := &providerSession{uid: uid, email: email}
	s.src = oauth2.ReuseTokenSourceWithExpiry(tok, &refresher{p: p, session: s, refreshToken: tok.RefreshToken}, p.cfg.RefreshLead)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.stop()
	}
	p.session = s
	p.scheduleLocked(s, tok.Expiry)
}

// schedule arms the background refresh of s for a token expiring at expiry.
func (p *FirebaseProvider) schedule(s *providerSession, expiry time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == s {
		p.scheduleLocked(s, expiry)
	}
}

func (p *FirebaseProvider) scheduleLocked(s *providerSession, expiry time.Time) {
	if expiry.IsZero() {
		return
	}
	p.armLocked(s, time.Until(expiry.Add(-p.cfg.RefreshLead)))
}

func (p *FirebaseProvider) armLocked(s *providerSession, delay time.Duration) {
	s.stop()
	if p.closed {
		return
	}
	if delay < minRefreshDelay {
		delay = minRefreshDelay
	}
	s.timer = time.AfterFunc(delay, func() { p.refreshAhead(s) })
}

// refreshAhead refreshes the ID token of s before it expires. A successful
// refresh emits EventTokenRefreshed and arms the next one.
func (p *FirebaseProvider) refreshAhead(s *providerSession) {
	p.mu.Lock()
	current := p.session == s
	p.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	if _, err := p.Token(ctx); err != nil {
		p.log.Warn(ctx, "background token refresh failed", "error", err)
		p.mu.Lock()
		if p.session == s {
			p.armLocked(s, refreshRetryDelay)
		}
		p.mu.Unlock()
	}
}

// dropSession clears s if it is still the current session.
func (p *FirebaseProvider) dropSession(ctx context.Context, s *providerSession) {
	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return
	}
	s.stop()
	p.session = nil
	p.mu.Unlock()

	if err := p.store.DeleteSecureItem(ctx, common.IdentitySessionKey); err != nil {
		p.log.Warn(ctx, "failed to delete identity session", "error", err)
	}
	p.hub.emit(Event{Kind: EventSignedOut})
}

func (p *FirebaseProvider) persist(ctx context.Context, uid, email, refreshToken string) error {
	raw, err := json.Marshal(persistedSession{UID: uid, Email: email, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return p.store.SetSecureItem(ctx, common.IdentitySessionKey, raw)
}

type restError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) send(req *http.Request, out any) error {
	resp, err := p.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return &Error{Code: CodeNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: CodeNetwork, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var re restError
		if err := json.Unmarshal(raw, &re); err != nil || re.Error.Message == "" {
			return &Error{Code: CodeInternal, Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return &Error{Code: codeFromREST(re.Error.Message), Message: re.Error.Message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Code: CodeInternal, Message: "decode response", Err: err}
	}
	return nil
}

// refresher exchanges the refresh token at the secure token endpoint. It is
// wrapped in an oauth2 reuse source, which only calls it once the cached ID
// token is due.
type refresher struct {
	p            *FirebaseProvider
	session      *providerSession
	refreshToken string
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (r *refresher) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", r.refreshToken)

	endpoint := r.p.cfg.SecureTokenEndpoint + "/token?key=" + url.QueryEscape(r.p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := r.p.send(req, &resp); err != nil {
		return nil, err
	}

	tok, _, _ := tokenFromID(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if resp.RefreshToken != "" && resp.RefreshToken != r.refreshToken {
		r.refreshToken = resp.RefreshToken
		if err := r.p.persist(ctx, r.session.uid, r.session.email, resp.RefreshToken); err != nil {
			r.p.log.Warn(ctx, "failed to persist refreshed identity session", "error", err)
		}
	}

	r.p.schedule(r.session, tok.Expiry)
	r.p.hub.emit(Event{Kind: EventTokenRefreshed, UID: r.session.uid, Email: r.session.email})
	return tok, nil
}

// tokenFromID builds an oauth2 token from an ID token. Expiry comes from the
// exp claim when present, otherwise from expiresIn seconds.
func tokenFromID(idToken, refreshToken, expiresIn string) (*oauth2.Token, string, string) {
	tok := &oauth2.Token{AccessToken: idToken, TokenType: "Bearer", RefreshToken: refreshToken}

	if secs, err := strconv.Atoi(expiresIn); err == nil {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return tok, "", ""
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	uid, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	return tok, uid, email
}
