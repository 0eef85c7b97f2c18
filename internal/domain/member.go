package domain

import (
	"errors"
	"time"
)

// ErrMemberNotFound indicates that the member is not found.
var ErrMemberNotFound = errors.New("member not found")

// MembershipStatus is the eligibility state of a member.
type MembershipStatus string

// Membership statuses.
const (
	MembershipStatusPending   MembershipStatus = "PENDING"
	MembershipStatusActive    MembershipStatus = "ACTIVE"
	MembershipStatusSuspended MembershipStatus = "SUSPENDED"
	MembershipStatusExited    MembershipStatus = "EXITED"
)

// Member is the cooperative member owning accounts.
type Member struct {
	ID        int64            `json:"id"`
	FullName  string           `json:"full_name"`
	Status    MembershipStatus `json:"membership_status"`
	CreatedAt time.Time        `json:"created_at"`
}
