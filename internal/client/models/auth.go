package models

// SignupData is the registration form sent to POST /auth/signup.
type SignupData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	MemberID string `json:"memberId,omitempty"`
}

// LoginRequest is the body of the legacy/migration POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the body of PUT /auth/profile. Empty fields are omitted.
type ProfileUpdate struct {
	MemberID string `json:"memberId,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Patch converts the update into the equivalent local merge.
func (p ProfileUpdate) Patch() UserPatch {
	var patch UserPatch
	if p.MemberID != "" {
		memberID := p.MemberID
		patch.MemberID = &memberID
	}
	if p.Phone != "" {
		phone := p.Phone
		patch.Phone = &phone
	}
	return patch
}

// MessageResponse is the common {success, message} envelope.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SignupResponse is returned by POST /auth/signup.
type SignupResponse struct {
	Success               bool   `json:"success"`
	Message               string `json:"message,omitempty"`
	User                  *User  `json:"user,omitempty"`
	RequiresApproval      bool   `json:"requiresApproval,omitempty"`
	RequiresAdminApproval bool   `json:"requiresAdminApproval,omitempty"`
}

// NeedsApproval reports whether the new account waits for an administrator.
func (r *SignupResponse) NeedsApproval() bool {
	if r == nil {
		return false
	}
	if r.RequiresApproval || r.RequiresAdminApproval {
		return true
	}
	return r.User != nil && r.User.AccountStatus == AccountStatusPending
}

// LoginResponse is returned by the migration POST /auth/login.
type LoginResponse struct {
	Success          bool          `json:"success"`
	Message          string        `json:"message,omitempty"`
	AccountStatus    AccountStatus `json:"accountStatus,omitempty"`
	RequiresApproval bool          `json:"requiresApproval,omitempty"`
	RejectionReason  string        `json:"rejectionReason,omitempty"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ForgotPasswordResponse is returned by POST /auth/forgot-password.
type ForgotPasswordResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	ResetToken string `json:"resetToken,omitempty"`
	Email      string `json:"email,omitempty"`
	ExpiresIn  string `json:"expiresIn,omitempty"`
}

// ResetPasswordResponse is returned by POST /auth/reset-password/:token.
type ResetPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
}
