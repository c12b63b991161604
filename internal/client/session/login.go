package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
)

// migratable reports whether a provider sign-in failure may belong to an
// account that still lives only in the legacy backend.
func migratable(err error) bool {
	switch identity.Code(err) {
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeInvalidCredential:
		return true
	default:
		return false
	}
}

// Login signs in with the provider and establishes the session. A legacy
// account unknown to the provider is migrated by the backend once, then the
// provider sign-in is retried once.
func (r *Reconciler) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = common.NormalizeEmail(email)

	release := r.hold()
	defer release()

	err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		if !migratable(err) {
			return nil, err
		}
		if err := r.migrate(ctx, email, password, err); err != nil {
			return nil, err
		}
		if err := r.provider.SignIn(ctx, email, password); err != nil {
			return nil, err
		}
	}

	return r.establishNow(ctx)
}

// migrate asks the backend to move a legacy account to the provider.
// providerErr is returned when the backend does not accept the credentials
// either.
func (r *Reconciler) migrate(ctx context.Context, email, password string, providerErr error) error {
	r.log.Info(ctx, "provider sign-in failed, trying account migration", "code", identity.Code(providerErr))

	resp, err := r.gateway.Login(ctx, email, password)
	if err != nil {
		if authErr := approvalErrorFromAPI(err); authErr != nil {
			return authErr
		}
		var apiErr *client.APIError
		if errors.Is(err, client.ErrUnauthorized) || errors.As(err, &apiErr) {
			return providerErr
		}
		return err
	}

	if authErr := approvalError(resp.AccountStatus, resp.RequiresApproval, resp.RejectionReason, resp.Message, nil); authErr != nil {
		return authErr
	}
	if !resp.Success {
		return providerErr
	}
	return nil
}

// Signup registers the account with the backend. Accounts that need admin
// approval are reported as pending without signing in.
func (r *Reconciler) Signup(ctx context.Context, data models.SignupData) (*models.User, error) {
	data.Email = common.NormalizeEmail(data.Email)

	resp, err := r.gateway.Signup(ctx, data)
	if err != nil {
		if authErr := approvalErrorFromAPI(err); authErr != nil {
			return nil, authErr
		}
		return nil, err
	}
	if resp.NeedsApproval() {
		return nil, &AuthError{Kind: KindPendingApproval, Message: resp.Message, User: resp.User.Clone()}
	}

	release := r.hold()
	defer release()

	if err := r.provider.SignIn(ctx, data.Email, data.Password); err != nil {
		return nil, err
	}
	return r.establishNow(ctx)
}

// establishNow runs the reconciliation steps for an explicit operation and
// reports their result to the caller.
func (r *Reconciler) establishNow(ctx context.Context) (*models.User, error) {
	seq := r.beginExplicit()
	log := r.log.With("seq", seq, "trigger", "explicit")

	token, err := r.provider.Token(ctx)
	if err != nil {
		r.clear(ctx, seq)
		r.outcome(ctx, log, seq, metrics.OutcomeFailed)
		return nil, err
	}
	if !r.installToken(ctx, seq, token) {
		r.outcome(ctx, log, seq, metrics.OutcomeSuperseded)
		return nil, ErrSuperseded
	}

	user, err := r.gateway.Me(ctx)
	user, outcome, err := r.establish(ctx, seq, token, user, err)
	r.outcome(ctx, log, seq, outcome)
	return user, err
}

// Logout signs out of the provider and clears the session. Failures are
// logged, never returned.
func (r *Reconciler) Logout(ctx context.Context) {
	release := r.hold()
	defer release()

	if err := r.provider.SignOut(ctx); err != nil {
		r.log.Warn(ctx, "provider sign-out failed", "error", err)
	}

	seq := r.beginExplicit()
	if err := r.tokens.SetToken(ctx, ""); err != nil {
		r.log.Warn(ctx, "failed to clear bearer token", "error", err)
	}
	if !r.commit(seq, func(s *Session) {
		s.State = StateUnauthenticated
		s.Token = ""
		s.User = nil
	}) {
		r.log.Debug(ctx, "logout overtaken by a newer session change", "seq", seq)
	}
	r.log.Info(ctx, "logged out")
}
