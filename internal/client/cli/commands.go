package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/client/session"
	"github.com/dmitrijs2005/communityapp/internal/common"
)

// sessionCore is the part of *session.Reconciler the commands drive.
type sessionCore interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Signup(ctx context.Context, data models.SignupData) (*models.User, error)
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) error
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) error
	ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, token, password string) (*models.ResetPasswordResponse, error)
	Session() session.Session
}

func (a *App) isLoggedIn() bool {
	return a.core.Session().User != nil
}

func (a *App) status() string {
	s := a.core.Session()
	switch {
	case s.Loading:
		return "(loading)"
	case s.User != nil:
		return fmt.Sprintf("(%s)", s.User.Email)
	default:
		return ""
	}
}

func (a *App) readPassword() (string, error) {
	pw, err := GetPassword(a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	user, err := a.core.Login(ctx, email, password)
	if err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(user))
	return nil
}

func (a *App) Signup(ctx context.Context) error {
	var data models.SignupData
	var err error

	if data.Name, err = GetSimpleText(a.reader, "Full name", a.out); err != nil {
		return err
	}
	if data.Email, err = GetSimpleText(a.reader, "Email", a.out); err != nil {
		return err
	}
	if data.Phone, err = GetSimpleText(a.reader, "Phone (optional)", a.out); err != nil {
		return err
	}
	if data.MemberID, err = GetSimpleText(a.reader, "Member ID (optional)", a.out); err != nil {
		return err
	}
	if data.Password, err = a.readPassword(); err != nil {
		return err
	}

	user, err := a.core.Signup(ctx, data)
	if err != nil {
		if session.IsPendingApproval(err) {
			fmt.Fprintln(a.out, "Registration received. An administrator has to approve your account before you can sign in.")
			return nil
		}
		a.report(err)
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(user))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.core.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) Whoami(_ context.Context) error {
	u := a.core.Session().User
	if u == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\n", displayName(u), u.Email)
	fmt.Fprintf(a.out, "  role:         %s\n", u.Role)
	fmt.Fprintf(a.out, "  status:       %s\n", u.AccountStatus)
	if u.VerificationStatus != "" {
		fmt.Fprintf(a.out, "  verification: %s\n", u.VerificationStatus)
	}
	if u.MemberID != "" {
		fmt.Fprintf(a.out, "  member id:    %s\n", u.MemberID)
	}
	if u.Phone != "" {
		fmt.Fprintf(a.out, "  phone:        %s\n", u.Phone)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.core.RefreshUser(ctx); err != nil {
		a.report(err)
		return err
	}
	return a.Whoami(ctx)
}

func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Please log in first.")
		return nil
	}

	var update models.ProfileUpdate
	var err error
	if update.MemberID, err = GetSimpleText(a.reader, "Member ID (empty to keep)", a.out); err != nil {
		return err
	}
	if update.Phone, err = GetSimpleText(a.reader, "Phone (empty to keep)", a.out); err != nil {
		return err
	}
	if update.MemberID == "" && update.Phone == "" {
		fmt.Fprintln(a.out, "Nothing to update.")
		return nil
	}

	if err := a.core.UpdateProfile(ctx, update); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

func (a *App) Forgot(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	resp, err := a.core.ForgotPassword(ctx, email)
	if err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, orDefault(resp.Message, "If the address is registered, a reset link is on its way."))
	if resp.ResetToken != "" {
		fmt.Fprintf(a.out, "Reset token: %s\n", resp.ResetToken)
	}
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	token, err := GetSimpleText(a.reader, "Reset token", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}
	resp, err := a.core.ResetPassword(ctx, token, password)
	if err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, orDefault(resp.Message, "Password updated. You can log in now."))
	return nil
}

func (a *App) Status(_ context.Context) error {
	s := a.core.Session()
	fmt.Fprintf(a.out, "state:   %s\n", s.State)
	fmt.Fprintf(a.out, "loading: %t\n", s.Loading)
	if s.User != nil {
		fmt.Fprintf(a.out, "user:    %s\n", s.User.Email)
	}
	return nil
}

// report prints err in user terms.
func (a *App) report(err error) {
	fmt.Fprintln(a.out, describeError(err))
}

func describeError(err error) string {
	var authErr *session.AuthError
	var apiErr *client.APIError
	switch {
	case session.IsPendingApproval(err):
		return "Your account is pending admin approval."
	case errors.As(err, &authErr) && authErr.Kind == session.KindAccountRejected:
		if authErr.RejectionReason != "" {
			return "Your account has been rejected: " + authErr.RejectionReason
		}
		return "Your account has been rejected."
	case errors.Is(err, session.ErrNotApproved):
		return "Your account is not approved."
	case errors.Is(err, client.ErrUnavailable):
		return "The server is unavailable, try again later."
	case errors.Is(err, client.ErrUnauthorized):
		return "Your session has expired, please log in again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}

	switch identity.Code(err) {
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeInvalidCredential:
		return "Invalid email or password."
	case identity.CodeInvalidEmail:
		return "That email address is not valid."
	case identity.CodeUserDisabled:
		return "This account has been disabled."
	case identity.CodeTooManyRequests:
		return "Too many attempts, try again later."
	case identity.CodeNetwork:
		return "Network error, check your connection."
	}
	return "Error: " + err.Error()
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
