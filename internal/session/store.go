package session

import (
	"context"
	"errors"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// Store keeps sessions until they are deleted or expire
	Store interface {
		Create(context.Context, *api.Session) error
		Get(context.Context, api.SessionID) (*api.Session, error)
		Update(context.Context, api.SessionID, UpdateFunc) (*api.Session, error)
		Delete(context.Context, api.SessionID) error
	}

	// UpdateFunc mutates a copy of a stored session. Returning an error
	// abandons the update
	UpdateFunc func(*api.Session) error
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrConflict  = errors.New("session modified concurrently")
	ErrExists    = errors.New("session already exists")
	ErrNoSession = errors.New("session is nil")
)

func cloneSession(s *api.Session) *api.Session {
	res := *s
	res.Progress.State = s.Progress.State.Clone()
	return &res
}
