// Package services defines the business logic of the post scheduling engine:
// post lifecycle, quota enforcement, submission history tracking, and listing.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrPostNotFound indicates that the referenced scheduled post does not
	// exist or is not owned by the acting user.
	ErrPostNotFound = errors.New("scheduled post not found")

	// ErrQuotaExceeded is returned when a non-privileged user has no
	// remaining scheduling slots for the current day.
	ErrQuotaExceeded = errors.New("daily scheduling quota exceeded")

	// ErrInvalidSortDirection is returned when a listing request carries a
	// sort direction outside {asc, desc}. The core never silently defaults.
	ErrInvalidSortDirection = errors.New("sort direction must be asc or desc")

	// ErrInvalidSortField is returned when a listing request names a field
	// outside the sortable allow-list.
	ErrInvalidSortField = errors.New("unsupported sort field")

	// ErrInvalidPaging is returned when page or size is negative.
	ErrInvalidPaging = errors.New("page and size must be non-negative")

	// ErrConflictingUpdate is returned when a per-post write lost an
	// optimistic-version race and the internal retry lost again. The losing
	// write is never silently dropped; callers may retry the operation.
	ErrConflictingUpdate = errors.New("scheduled post was modified concurrently")
)
