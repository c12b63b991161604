package session

import "github.com/dmitrijs2005/communityapp/internal/client/models"

type State int

const (
	StateUnknown State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the published view. User is non-nil only when Token is set and
// the account is approved.
type Session struct {
	State   State
	Token   string
	User    *models.User
	Loading bool
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}
