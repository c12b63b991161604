package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
)

type fakeProvider struct {
	mu           sync.Mutex
	session      bool
	token        string
	tokenErr     error
	signInErrs   []error
	signOutErr   error
	signInCalls  int
	signOutCalls int
	subs         map[int]func(identity.Event)
	next         int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{token: "id-token", subs: make(map[int]func(identity.Event))}
}

func (p *fakeProvider) OnSessionChange(fn func(identity.Event)) *identity.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = fn
	return identity.NewSubscription(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	})
}

func (p *fakeProvider) emit(kind identity.EventKind) {
	p.mu.Lock()
	fns := make([]func(identity.Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(identity.Event{Kind: kind})
	}
}

func (p *fakeProvider) SignIn(_ context.Context, _, _ string) error {
	p.mu.Lock()
	p.signInCalls++
	var err error
	if len(p.signInErrs) > 0 {
		err = p.signInErrs[0]
		p.signInErrs = p.signInErrs[1:]
	}
	if err == nil {
		p.session = true
	}
	p.mu.Unlock()

	if err != nil {
		return err
	}
	p.emit(identity.EventSignedIn)
	return nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	had := p.session
	p.session = false
	err := p.signOutErr
	p.mu.Unlock()

	if had {
		p.emit(identity.EventSignedOut)
	}
	return err
}

func (p *fakeProvider) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.session {
		return "", &identity.Error{Code: identity.CodeNoSession}
	}
	if p.tokenErr != nil {
		return "", p.tokenErr
	}
	return p.token, nil
}

func (p *fakeProvider) HasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *fakeProvider) setToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// endSession ends the session on the provider side, as a revoked refresh
// token would.
func (p *fakeProvider) endSession() {
	p.mu.Lock()
	p.session = false
	p.mu.Unlock()
	p.emit(identity.EventSignedOut)
}

func (p *fakeProvider) counts() (signIn, signOut int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signInCalls, p.signOutCalls
}

type fakeGateway struct {
	mu         sync.Mutex
	me         func(ctx context.Context) (*models.User, error)
	login      func(ctx context.Context, email, password string) (*models.LoginResponse, error)
	signup     func(ctx context.Context, data models.SignupData) (*models.SignupResponse, error)
	profile    func(ctx context.Context, update models.ProfileUpdate) (*models.MessageResponse, error)
	meCalls    int
	loginCalls int
	lastEmail  string
}

func (g *fakeGateway) Signup(ctx context.Context, data models.SignupData) (*models.SignupResponse, error) {
	g.mu.Lock()
	g.lastEmail = data.Email
	g.mu.Unlock()
	return g.signup(ctx, data)
}

func (g *fakeGateway) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	g.mu.Lock()
	g.loginCalls++
	g.lastEmail = email
	g.mu.Unlock()
	return g.login(ctx, email, password)
}

func (g *fakeGateway) Me(ctx context.Context) (*models.User, error) {
	g.mu.Lock()
	g.meCalls++
	fn := g.me
	g.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no me handler")
	}
	return fn(ctx)
}

func (g *fakeGateway) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.MessageResponse, error) {
	return g.profile(ctx, update)
}

func (g *fakeGateway) ForgotPassword(_ context.Context, email string) (*models.ForgotPasswordResponse, error) {
	return &models.ForgotPasswordResponse{Success: true, Email: email}, nil
}

func (g *fakeGateway) ResetPassword(_ context.Context, token, _ string) (*models.ResetPasswordResponse, error) {
	return &models.ResetPasswordResponse{Success: true, Message: token}, nil
}

func (g *fakeGateway) setMe(fn func(ctx context.Context) (*models.User, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.me = fn
}

func (g *fakeGateway) calls() (me, login int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.meCalls, g.loginCalls
}

type fakeTokens struct {
	mu    sync.Mutex
	token string
	err   error
}

func (f *fakeTokens) SetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return f.err
}

func (f *fakeTokens) get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func approvedUser(id string) *models.User {
	return &models.User{ID: id, Name: "Ann", Email: "ann@example.com", Role: models.RoleUser, AccountStatus: models.AccountStatusApproved}
}

func userWithStatus(status models.AccountStatus) *models.User {
	u := approvedUser("u1")
	u.AccountStatus = status
	return u
}

func returnUser(u *models.User) func(context.Context) (*models.User, error) {
	return func(context.Context) (*models.User, error) { return u.Clone(), nil }
}
