package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	ErrUnavailable   = errors.New("storage: unavailable")
	ErrClosed        = errors.New("storage: closed")
	ErrNoSealer      = errors.New("storage: secure item without sealer")
)

// Backend is one flat string key/value area, the equivalent of a browser
// localStorage or sessionStorage object.
type Backend interface {
	Get(ctx context.Context, key string) (string, error) // ErrNotFound when absent
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
