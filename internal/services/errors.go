// Package services defines the business logic for submissions, catalog
// publishing, distribution, subscriptions, and analytics. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Authorization errors.
var (
	// ErrForbidden is returned when a caller lacks the role an operation
	// requires (e.g. a non-admin attempting a status transition). Role
	// checks run before any mutation.
	ErrForbidden = errors.New("caller is not permitted to perform this operation")
)

// Submission lifecycle errors.
var (
	// ErrSubmissionNotFound indicates that the requested submission does
	// not exist.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrRejectedTerminal is returned for any transition or push attempted
	// on a rejected submission. Rejected has no outgoing edges.
	ErrRejectedTerminal = errors.New("submission is rejected and cannot change further")
)

// Upload validation errors. All are reported before any store mutation.
var (
	// ErrMissingFile is returned when an upload carries no file data.
	ErrMissingFile = errors.New("a .glb file is required")

	// ErrWrongExtension is returned for files that are not .glb.
	ErrWrongExtension = errors.New("only .glb files are allowed")

	// ErrFileTooLarge is returned when the upload exceeds the size cap.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")

	// ErrMissingBusinessName is returned when neither the request nor the
	// caller's profile provides a business name.
	ErrMissingBusinessName = errors.New("business name is required")

	// ErrNoTargets is returned when specific_users mode is selected with
	// an empty UID list.
	ErrNoTargets = errors.New("specific users mode requires at least one user UID")

	// ErrInvalidTargetMode is returned for an unknown target mode value.
	ErrInvalidTargetMode = errors.New("unknown target mode")
)

// Upload outcome errors.
var (
	// ErrUploadedNotRecorded is returned when the blob upload succeeded
	// but the submission record write failed. The blob exists without a
	// matching submission; an operator may need to reconcile manually.
	ErrUploadedNotRecorded = errors.New("file uploaded but submission was not recorded")
)

// Catalog and distribution errors.
var (
	// ErrModelNotFound indicates that the requested catalog entry does
	// not exist.
	ErrModelNotFound = errors.New("model not found in catalog")
)

// Analytics errors.
var (
	// ErrInvalidEventType is returned for event types outside {open, save}.
	ErrInvalidEventType = errors.New("event type must be open or save")
)
