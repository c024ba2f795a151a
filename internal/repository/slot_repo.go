package repository

import (
	"context"
	"errors"
)

// ErrSlotNotFound is returned by Get when nothing was ever written under the key.
var ErrSlotNotFound = errors.New("slot not found")

// SlotRepository is a durable key-value slot. Put overwrites the previous
// value in full.
type SlotRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
