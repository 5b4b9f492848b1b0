package storage

import (
	"context"
	"errors"
)

var (
	// ErrTargetInvalid reports a storage target that is unset, unreachable
	// or not a container.
	ErrTargetInvalid = errors.New("storage target missing or invalid")
	// ErrExists is returned when an object with the same name already exists.
	ErrExists = errors.New("object already exists")
)

// Object identifies a stored transcript snapshot.
type Object struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TranscriptStore persists transcript snapshots as new, independently named
// objects under a single target container. Create must never overwrite or
// append to an existing object. Implementations must be safe for concurrent
// use.
type TranscriptStore interface {
	Target() string
	Verify(ctx context.Context) error
	Create(ctx context.Context, name string, data []byte) (Object, error)
}

// Unavailable is used when a store could not be constructed at startup;
// every call reports the construction error.
type Unavailable struct {
	TargetID string
	Err      error
}

func (u Unavailable) Target() string { return u.TargetID }

func (u Unavailable) Verify(context.Context) error { return u.Err }

func (u Unavailable) Create(context.Context, string, []byte) (Object, error) {
	return Object{}, u.Err
}
