package repository

import (
	"context"
	"sync"
)

var _ SlotRepository = (*MemorySlotRepo)(nil)

// MemorySlotRepo keeps slots in process memory.
type MemorySlotRepo struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySlotRepo() *MemorySlotRepo {
	return &MemorySlotRepo{slots: map[string][]byte{}}
}

func (r *MemorySlotRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (r *MemorySlotRepo) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[key] = append([]byte(nil), value...)
	return nil
}
