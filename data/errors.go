package data

import "errors"

// ErrNodeNotFound is returned in APIs if a node is not found
var ErrNodeNotFound = errors.New("node not found")

// ErrNodeExists is returned when inserting a node with an ID that is
// already used
var ErrNodeExists = errors.New("node already exists")

// ErrParentNotFound is returned when a node references a parent that
// does not exist
var ErrParentNotFound = errors.New("parent node not found")

// ErrParentCycle is returned when a parent assignment would make a node
// its own ancestor
var ErrParentCycle = errors.New("parent assignment creates a cycle")

// ErrNodeHasChildren is returned when deleting a node that still has
// children
var ErrNodeHasChildren = errors.New("node has children")

// ErrUnknownPointType is returned when a point does not map to a node field
var ErrUnknownPointType = errors.New("unknown point type")

// ErrNodeIDChange is returned when an update tries to change the ID of a
// node
var ErrNodeIDChange = errors.New("node id can not be changed")

// ErrInvalidID is returned for node IDs that can not be used in NATS
// subjects
var ErrInvalidID = errors.New("invalid node id")

// sentinels lists the errors that can be carried by text across NATS
var sentinels = []error{
	ErrNodeNotFound,
	ErrNodeExists,
	ErrParentNotFound,
	ErrParentCycle,
	ErrNodeHasChildren,
	ErrUnknownPointType,
	ErrNodeIDChange,
	ErrInvalidID,
}

// ErrorFromText converts an error string received in a reply back to an
// error. If the text starts with one of the sentinel errors, the returned
// error wraps that sentinel so errors.Is works across the wire.
func ErrorFromText(text string) error {
	if text == "" {
		return nil
	}

	for _, s := range sentinels {
		msg := s.Error()
		if text == msg {
			return s
		}
		if len(text) > len(msg) && text[:len(msg)] == msg {
			return &wireError{text: text, sentinel: s}
		}
	}

	return errors.New(text)
}

type wireError struct {
	text     string
	sentinel error
}

func (e *wireError) Error() string { return e.text }

func (e *wireError) Unwrap() error { return e.sentinel }
