package weave

import "errors"

// Common errors.
var (
	// ErrShape is returned when a part is constructed with an invalid shape,
	// e.g. a Knot whose children do not match its grid's slots.
	ErrShape = errors.New("weave: invalid part shape")

	// ErrUnsupportedVariant is returned by structural transforms applied to
	// a variant they do not support (e.g. decomposing a Union).
	ErrUnsupportedVariant = errors.New("weave: unsupported part variant")

	// ErrPathNotFound is returned when a patch path does not resolve to a
	// sub-part.
	ErrPathNotFound = errors.New("weave: path not found")

	// ErrInvalidState is raised when a state or action value does not match
	// the type a unit declared.
	ErrInvalidState = errors.New("weave: invalid state or action type")

	// ErrTypeMismatch is returned by Validate when a flow's types are not
	// compatible with the part it is bound to.
	ErrTypeMismatch = errors.New("weave: flow/part type mismatch")
)
