package service

import (
	"errors"

	"dm-service/internal/identity"
)

var (
	ErrUnauthenticated = identity.ErrUnauthenticated
	ErrForbidden       = errors.New("forbidden")
	ErrSelfReference   = errors.New("cannot add yourself as a contact")
	ErrNotFound        = errors.New("not found")
	ErrEmptyContent    = errors.New("message content is empty")
)
