package client

import (
	"context"

	"github.com/dmitrijs2005/communityapp/internal/client/models"
)

type Client interface {
	Signup(ctx context.Context, data models.SignupData) (*models.SignupResponse, error)
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	// Me returns the backend record of the current user, or nil when the
	// response carries none.
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.MessageResponse, error)
	ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, token, password string) (*models.ResetPasswordResponse, error)
}

// TokenSource supplies the bearer token for each request and drops it when
// the backend rejects it.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}
