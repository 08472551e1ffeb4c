// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMedia is returned for content types that are neither
	// image/* nor video/*. Always fatal.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrProbeUnavailable means the decoder or external tool needed to read
	// the asset is missing or timed out. Callers may soft-skip it when the
	// policy is not strict.
	ErrProbeUnavailable = errors.New("media probe unavailable")

	// ErrValidationRejected wraps every *ValidationError. Always fatal.
	ErrValidationRejected = errors.New("media rejected by policy")
)

// ProbeError is returned by probes when the tool or decoder could not run.
// Kind is the sentinel the error matches under errors.Is.
type ProbeError struct {
	Op      string
	Kind    error
	Timeout bool
	Err     error
}

func (e *ProbeError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProbeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason is the policy rule a rejected asset failed.
type Reason string

const (
	ReasonTooSmall       Reason = "too_small"
	ReasonBadAspectRatio Reason = "bad_aspect_ratio"
)

// ValidationError carries the actual and required values so callers can
// explain the rejection to the uploader.
type ValidationError struct {
	Reason      Reason
	Width       int
	Height      int
	MinWidth    int
	MinHeight   int
	Ratio       float64
	TargetRatio float64
	Tolerance   float64
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooSmall:
		return fmt.Sprintf("asset is %dx%d, minimum is %dx%d", e.Width, e.Height, e.MinWidth, e.MinHeight)
	default:
		return fmt.Sprintf("asset aspect ratio is %.4f, required %.4f ±%.0f%%", e.Ratio, e.TargetRatio, e.Tolerance*100)
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidationRejected }

// Class is the coarse category a media error falls into.
type Class int

const (
	ClassOther Class = iota
	ClassProbeUnavailable
	ClassRejected
)

func (c Class) String() string {
	switch c {
	case ClassProbeUnavailable:
		return "probe_unavailable"
	case ClassRejected:
		return "rejected"
	default:
		return "other"
	}
}

// Classify maps err to its class using the error chain only.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassOther
	case errors.Is(err, ErrValidationRejected):
		return ClassRejected
	case errors.Is(err, ErrProbeUnavailable):
		return ClassProbeUnavailable
	default:
		return ClassOther
	}
}
