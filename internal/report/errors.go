package report

import "errors"

var (
	// ErrNotFound is returned when a named section does not exist.
	ErrNotFound = errors.New("section not found")

	// ErrAlreadyAttached means a section still belonged to another report after
	// it should have been detached from it.
	ErrAlreadyAttached = errors.New("section already attached to another report")

	// ErrUnsupportedElementType is returned by renderers that have no markup rule
	// for an element's type.
	ErrUnsupportedElementType = errors.New("unsupported element type")

	// ErrDuplicateName is returned when a reference name is already taken in a section.
	ErrDuplicateName = errors.New("duplicate reference name")

	// ErrElementInUse is returned when an element added to a section already
	// belongs to a section.
	ErrElementInUse = errors.New("element already belongs to a section")
)
