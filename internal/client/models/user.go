package models

// Role is the application role assigned by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AccountStatus is the backend-owned approval state of an account.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusApproved AccountStatus = "approved"
	AccountStatusRejected AccountStatus = "rejected"
)

// VerificationStatus tracks membership verification by an administrator.
type VerificationStatus string

const (
	VerificationVerified     VerificationStatus = "verified"
	VerificationUnverified   VerificationStatus = "unverified"
	VerificationPendingAdmin VerificationStatus = "pending_admin"
)

// User is the application user record. The backend owns it; the client keeps
// the last reconciled copy and replaces it wholesale on every reconciliation.
type User struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Role               Role               `json:"role"`
	Phone              string             `json:"phone,omitempty"`
	MemberID           string             `json:"memberId,omitempty"`
	AccountStatus      AccountStatus      `json:"accountStatus"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	RejectionReason    string             `json:"rejectionReason,omitempty"`
}

// IsApproved reports whether the account passed the approval gate.
func (u *User) IsApproved() bool {
	return u != nil && u.AccountStatus == AccountStatusApproved
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy that shares no state with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// UserPatch is a local-only partial update. Nil fields are left unchanged.
type UserPatch struct {
	Name     *string
	Phone    *string
	MemberID *string
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if u == nil {
		return
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.MemberID != nil {
		u.MemberID = *p.MemberID
	}
}
