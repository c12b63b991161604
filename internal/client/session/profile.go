package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
)

// UpdateUser merges patch into the cached user and republishes. Nothing is
// sent to the backend. Without a user it does nothing.
func (r *Reconciler) UpdateUser(patch models.UserPatch) {
	r.publish(func(s *Session) bool {
		if s.User == nil {
			return false
		}
		u := s.User.Clone()
		patch.Apply(u)
		s.User = u
		return true
	})
}

// RefreshUser reloads the user record with a fresh provider token. A 401
// logs the user out; a record that is no longer approved goes through the
// approval gate. On other errors the cached user is kept.
func (r *Reconciler) RefreshUser(ctx context.Context) error {
	if !r.provider.HasSession() {
		return nil
	}

	release := r.hold()
	defer release()

	seq := r.beginExplicit()
	log := r.log.With("seq", seq, "trigger", "refresh")

	token, err := r.provider.Token(ctx)
	if err != nil {
		log.Warn(ctx, "failed to get provider token", "error", err)
		if !r.provider.HasSession() {
			r.clear(ctx, seq)
			r.outcome(ctx, log, seq, metrics.OutcomeUnauthenticated)
		}
		return err
	}
	if !r.installToken(ctx, seq, token) {
		r.outcome(ctx, log, seq, metrics.OutcomeSuperseded)
		return nil
	}

	user, err := r.gateway.Me(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		log.Info(ctx, "backend rejected token on refresh, logging out")
		r.Logout(ctx)
		return err
	}
	if err != nil {
		log.Warn(ctx, "failed to refresh user", "error", err)
		if r.Session().User == nil {
			r.clear(ctx, seq)
		}
		return err
	}
	if user == nil {
		return ErrNoUser
	}

	_, outcome, err := r.establish(ctx, seq, token, user, nil)
	r.outcome(ctx, log, seq, outcome)
	if outcome == metrics.OutcomeSuperseded {
		return nil
	}
	return err
}

// UpdateProfile saves the profile fields on the backend and merges them into
// the cached user once the backend confirms.
func (r *Reconciler) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	resp, err := r.gateway.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("profile update rejected: %s", resp.Message)
	}
	r.UpdateUser(update.Patch())
	return nil
}

func (r *Reconciler) ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResponse, error) {
	return r.gateway.ForgotPassword(ctx, common.NormalizeEmail(email))
}

func (r *Reconciler) ResetPassword(ctx context.Context, token, password string) (*models.ResetPasswordResponse, error) {
	return r.gateway.ResetPassword(ctx, token, password)
}
