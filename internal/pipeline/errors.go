// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package pipeline

import (
	"errors"

	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

var (
	// ErrAlreadyInFlight means another worker holds a live lease on the
	// stage. The caller should drop the task; the holder's advance or the
	// stall monitor will move the document forward.
	ErrAlreadyInFlight = errors.New("pipeline: stage already in flight")

	// ErrStaleLease means the caller's lease was reclaimed before it could
	// advance. The caller's output (if any) stands, but ownership moved on;
	// treat as a silent no-op.
	ErrStaleLease = statestore.ErrStaleLease

	// ErrNotQueued means the stage is not in a startable state.
	ErrNotQueued = errors.New("pipeline: stage not queued")

	// ErrInvalidTransition means the requested stage movement is not an
	// edge of the pipeline graph.
	ErrInvalidTransition = errors.New("pipeline: invalid stage transition")

	// ErrTerminal means the document already reached completed or failed.
	ErrTerminal = errors.New("pipeline: document in terminal stage")

	// ErrNotFound re-exports the store sentinel for API handlers.
	ErrNotFound = statestore.ErrNotFound
)

// permanentError marks a failure that retrying cannot fix: malformed input,
// an invariant violation, an explicit rejection from a collaborator.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Fail routes it straight to the failed state instead
// of the retry path. Wrapping nil returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
