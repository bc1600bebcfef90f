package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrContextDone      = errors.New("context cancelled")
	ErrMalformedListing = errors.New("malformed listing")
	// ErrFeeDefect marks a fee computation that produced a negative or
	// exceeds-payout value; the opportunity carrying it is discarded.
	ErrFeeDefect = errors.New("fee model defect")
	// ErrInvariantViolation marks an arithmetic identity failure (e.g.
	// net != gross - fees). Programming-error class: surfaced loudly,
	// never folded into the recoverable paths above.
	ErrInvariantViolation = errors.New("arithmetic invariant violation")
	ErrNoOpportunity      = errors.New("no opportunity")
	ErrAdvisoryTimeout    = errors.New("advisory capability timed out")
)
