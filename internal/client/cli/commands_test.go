package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/client/session"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeCore struct {
	session    session.Session
	loginErr   error
	signupErr  error
	profileErr error

	gotEmail    string
	gotPassword string
	gotSignup   models.SignupData
	gotProfile  models.ProfileUpdate
	loggedOut   bool
}

func (f *fakeCore) Login(_ context.Context, email, password string) (*models.User, error) {
	f.gotEmail, f.gotPassword = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := &models.User{Name: "Ann", Email: email, AccountStatus: models.AccountStatusApproved}
	f.session = session.Session{State: session.StateAuthenticated, Token: "t", User: u}
	return u, nil
}

func (f *fakeCore) Signup(_ context.Context, data models.SignupData) (*models.User, error) {
	f.gotSignup = data
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.User{Name: data.Name, Email: data.Email}, nil
}

func (f *fakeCore) Logout(context.Context) {
	f.loggedOut = true
	f.session = session.Session{State: session.StateUnauthenticated}
}

func (f *fakeCore) RefreshUser(context.Context) error { return nil }

func (f *fakeCore) UpdateProfile(_ context.Context, update models.ProfileUpdate) error {
	f.gotProfile = update
	return f.profileErr
}

func (f *fakeCore) ForgotPassword(_ context.Context, email string) (*models.ForgotPasswordResponse, error) {
	return &models.ForgotPasswordResponse{Success: true, ResetToken: "rt-1", Email: email}, nil
}

func (f *fakeCore) ResetPassword(_ context.Context, token, _ string) (*models.ResetPasswordResponse, error) {
	return &models.ResetPasswordResponse{Success: true, Message: "reset " + token}, nil
}

func (f *fakeCore) Session() session.Session { return f.session }

func newTestApp(t *testing.T, core *fakeCore, input string) (*App, *bytes.Buffer) {
	t.Helper()
	stubPassword(t, "pw", nil)
	var out bytes.Buffer
	return &App{core: core, reader: rdr(input), out: &out, gatherer: prometheus.NewRegistry()}, &out
}

func TestLogin_Success(t *testing.T) {
	core := &fakeCore{}
	app, out := newTestApp(t, core, "ann@example.com\n")

	require.NoError(t, app.Login(context.Background()))
	require.Equal(t, "ann@example.com", core.gotEmail)
	require.Equal(t, "pw", core.gotPassword)
	require.Contains(t, out.String(), "Welcome, Ann!")
	require.True(t, app.isLoggedIn())
	require.Equal(t, "(ann@example.com)", app.status())
}

func TestLogin_PendingApproval(t *testing.T) {
	core := &fakeCore{loginErr: &session.AuthError{Kind: session.KindPendingApproval}}
	app, out := newTestApp(t, core, "ann@example.com\n")

	require.Error(t, app.Login(context.Background()))
	require.Contains(t, out.String(), "pending admin approval")
	require.False(t, app.isLoggedIn())
}

func TestSignup_Pending(t *testing.T) {
	core := &fakeCore{signupErr: &session.AuthError{Kind: session.KindPendingApproval}}
	app, out := newTestApp(t, core, "Ann Lee\nann@example.com\n\nM-1\n")

	require.NoError(t, app.Signup(context.Background()))
	require.Equal(t, models.SignupData{Name: "Ann Lee", Email: "ann@example.com", MemberID: "M-1", Password: "pw"}, core.gotSignup)
	require.Contains(t, out.String(), "administrator has to approve")
}

func TestWhoamiAndLogout(t *testing.T) {
	core := &fakeCore{session: session.Session{
		State: session.StateAuthenticated,
		Token: "t",
		User:  &models.User{Name: "Ann", Email: "ann@example.com", Role: models.RoleAdmin, AccountStatus: models.AccountStatusApproved, MemberID: "M-9"},
	}}
	app, out := newTestApp(t, core, "")

	require.NoError(t, app.Whoami(context.Background()))
	require.Contains(t, out.String(), "Ann <ann@example.com>")
	require.Contains(t, out.String(), "M-9")

	require.NoError(t, app.Logout(context.Background()))
	require.True(t, core.loggedOut)

	out.Reset()
	require.NoError(t, app.Whoami(context.Background()))
	require.Contains(t, out.String(), "Not signed in.")
}

func TestProfile(t *testing.T) {
	core := &fakeCore{}
	app, out := newTestApp(t, core, "")

	require.NoError(t, app.Profile(context.Background()))
	require.Contains(t, out.String(), "Please log in first.")

	core.session = session.Session{State: session.StateAuthenticated, Token: "t", User: &models.User{Email: "a@b.c", AccountStatus: models.AccountStatusApproved}}
	app.reader = rdr("M-2\n\n")
	require.NoError(t, app.Profile(context.Background()))
	require.Equal(t, models.ProfileUpdate{MemberID: "M-2"}, core.gotProfile)
	require.Contains(t, out.String(), "Profile updated.")

	core.profileErr = client.ErrUnavailable
	app.reader = rdr("\n+1\n")
	require.Error(t, app.Profile(context.Background()))
	require.Contains(t, out.String(), "server is unavailable")
}

func TestForgotAndReset(t *testing.T) {
	app, out := newTestApp(t, &fakeCore{}, "a@b.c\nrt-1\n")

	require.NoError(t, app.Forgot(context.Background()))
	require.Contains(t, out.String(), "Reset token: rt-1")

	require.NoError(t, app.Reset(context.Background()))
	require.Contains(t, out.String(), "reset rt-1")
}

func TestStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	app, out := newTestApp(t, &fakeCore{}, "")
	app.gatherer = reg

	m.ObserveReconciliation(metrics.OutcomeAuthenticated)
	m.ObserveRequest("GET", "/auth/me", 200)

	require.NoError(t, app.Stats(context.Background()))
	require.Contains(t, out.String(), `communityapp_session_reconciliations_total{outcome="authenticated"} 1`)
	require.Contains(t, out.String(), `communityapp_gateway_requests_total{code="200",endpoint="/auth/me",method="GET"} 1`)
}

func TestStats_Empty(t *testing.T) {
	app, out := newTestApp(t, &fakeCore{}, "")

	require.NoError(t, app.Stats(context.Background()))
	require.Contains(t, out.String(), "No activity yet.")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&session.AuthError{Kind: session.KindAccountRejected, RejectionReason: "dup"}, "Your account has been rejected: dup"},
		{&session.AuthError{Kind: session.KindAccountRejected}, "Your account has been rejected."},
		{fmt.Errorf("wrapped: %w", client.ErrUnavailable), "The server is unavailable, try again later."},
		{client.ErrUnauthorized, "Your session has expired, please log in again."},
		{&client.APIError{StatusCode: 409, Message: "email taken"}, "email taken"},
		{&identity.Error{Code: identity.CodeWrongPassword}, "Invalid email or password."},
		{&identity.Error{Code: identity.CodeTooManyRequests}, "Too many attempts, try again later."},
		{session.ErrNotApproved, "Your account is not approved."},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, describeError(tt.err))
	}
}
