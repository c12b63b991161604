package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/communityapp/internal/client/models"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx, non-401 backend response.
type APIError struct {
	StatusCode       int                  `json:"-"`
	Message          string               `json:"message"`
	AccountStatus    models.AccountStatus `json:"accountStatus,omitempty"`
	RequiresApproval bool                 `json:"requiresApproval,omitempty"`
	RejectionReason  string               `json:"rejectionReason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend error: %d %s", e.StatusCode, e.Message)
}
