package session

import (
	"errors"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
)

type Kind int

const (
	KindPendingApproval Kind = iota + 1
	KindAccountRejected
)

func (k Kind) String() string {
	switch k {
	case KindPendingApproval:
		return "pending_approval"
	case KindAccountRejected:
		return "account_rejected"
	default:
		return "unknown"
	}
}

var (
	// ErrSuperseded is returned by an explicit operation whose result was
	// overtaken by a newer session change before it could be published.
	ErrSuperseded = errors.New("session changed while the operation was running")
	// ErrNotApproved is returned for an account status the client does not know.
	ErrNotApproved = errors.New("account is not approved")
	ErrNoUser      = errors.New("backend returned no user record")
)

// AuthError reports an account that exists but may not sign in yet.
type AuthError struct {
	Kind            Kind
	Message         string
	User            *models.User
	RejectionReason string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindPendingApproval:
		return "your account is pending admin approval"
	case KindAccountRejected:
		if e.RejectionReason != "" {
			return "your account has been rejected: " + e.RejectionReason
		}
		return "your account has been rejected"
	default:
		return "authentication failed"
	}
}

func IsPendingApproval(err error) bool {
	var e *AuthError
	return errors.As(err, &e) && e.Kind == KindPendingApproval
}

func IsAccountRejected(err error) bool {
	var e *AuthError
	return errors.As(err, &e) && e.Kind == KindAccountRejected
}

// approvalError builds the AuthError for an approval signal, or nil when the
// signal does not describe a pending or rejected account.
func approvalError(status models.AccountStatus, requiresApproval bool, reason, message string, user *models.User) *AuthError {
	switch {
	case status == models.AccountStatusRejected:
		return &AuthError{Kind: KindAccountRejected, Message: message, RejectionReason: reason, User: user}
	case status == models.AccountStatusPending || requiresApproval:
		return &AuthError{Kind: KindPendingApproval, Message: message, User: user}
	default:
		return nil
	}
}

// approvalErrorFromAPI reads the approval fields of a backend error body.
func approvalErrorFromAPI(err error) *AuthError {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	return approvalError(apiErr.AccountStatus, apiErr.RequiresApproval, apiErr.RejectionReason, apiErr.Message, nil)
}
