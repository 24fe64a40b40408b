package domain

import (
	"time"
)

// Role is the relationship a signed-in user holds with a company.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleViewer Role = "VIEWER"
)

// IsValid returns true for a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleSeller, RoleViewer:
		return true
	}
	return false
}

// MembershipStatus marks whether a membership is currently usable.
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "ACTIVE"
	MembershipInactive MembershipStatus = "INACTIVE"
)

// Membership links a user to a company with a role. At most one membership is
// active per signed-in user in this client's model.
type Membership struct {
	ID          string           `json:"id"`
	CompanyID   string           `json:"company_id"`
	UserID      string           `json:"user_id"`
	Role        Role             `json:"role"`
	Status      MembershipStatus `json:"status"`
	CompanyName string           `json:"company_name,omitempty"`
	CreatedAt   time.Time        `json:"created_at,omitempty"`
}

// InvitationStatus is the lifecycle state of a team invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// Invitation is a pending offer for a user to join a company.
type Invitation struct {
	ID           string           `json:"id"`
	CompanyID    string           `json:"company_id"`
	InvitedName  string           `json:"invited_name,omitempty"`
	InvitedEmail string           `json:"invited_email"`
	Role         Role             `json:"role"`
	Status       InvitationStatus `json:"status"`
	Token        string           `json:"token"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CreatedAt    time.Time        `json:"created_at,omitempty"`
	CreatedBy    string           `json:"created_by"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty"`
}
