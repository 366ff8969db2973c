// Package domain defines the persistence models for submissions, catalog
// models, assignments, subscriptions, and accounts. This file declares the
// closed enumerated types used throughout the core so that every consumption
// site can switch exhaustively instead of comparing free-form strings.
package domain

import "strings"

// Status is the lifecycle state of a submission.
//
// The state machine is: pending -> approved | rejected. Rejected is terminal:
// no transition, and no push, is permitted once a submission is rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known submission states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TargetMode selects how the distribution target set is resolved.
type TargetMode string

const (
	// TargetAllUsers distributes to every known end-user account.
	TargetAllUsers TargetMode = "all_users"
	// TargetSpecificUsers distributes to the submission's explicit UID list.
	TargetSpecificUsers TargetMode = "specific_users"
)

// Valid reports whether m is a known target mode.
func (m TargetMode) Valid() bool {
	switch m {
	case TargetAllUsers, TargetSpecificUsers:
		return true
	}
	return false
}

// Answer is the end-user's response recorded on an assignment. The core only
// ever writes AnswerPending at assignment creation; the consumer app owns the
// field afterwards.
type Answer string

const (
	AnswerPending Answer = "pending"
	AnswerYes     Answer = "yes"
	AnswerNo      Answer = "no"
)

// Valid reports whether a is a known answer value.
func (a Answer) Valid() bool {
	switch a {
	case AnswerPending, AnswerYes, AnswerNo:
		return true
	}
	return false
}

// Role classifies an account. Anything that is not an admin or a partner is
// treated as an end-user, which is why ParseRole never fails.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePartner Role = "partner"
	RoleEndUser Role = "user"
)

// ParseRole normalizes a stored role string into a closed Role value.
// Unknown or empty strings map to RoleEndUser, mirroring how the consumer
// app treats any non-admin, non-partner account.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "partner":
		return RolePartner
	default:
		return RoleEndUser
	}
}

// IsEndUser reports whether the role belongs to the distributable audience.
func (r Role) IsEndUser() bool { return r != RoleAdmin && r != RolePartner }
