package settings

import (
	"bytes"
	"context"
	"sync"
)

// MemoryRepository keeps the encoded block in memory. It behaves like
// FileRepository, including byte-exact snapshots, and counts writes.
type MemoryRepository struct {
	mu     sync.Mutex
	data   []byte
	exists bool
	writes int
}

// NewMemoryRepository creates a repository seeded with b. A nil block
// starts with no persisted state at all.
func NewMemoryRepository(b Block) *MemoryRepository {
	r := &MemoryRepository{}
	if b != nil {
		r.data, _ = Encode(b)
		r.exists = true
	}
	return r
}

func (r *MemoryRepository) Load(ctx context.Context) (Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *MemoryRepository) load() (Block, error) {
	if !r.exists {
		return Block{}, nil
	}
	b, _, err := Decode(r.data)
	return b, err
}

func (r *MemoryRepository) Update(ctx context.Context, fn func(Block) (Block, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return err
	}
	before, err := Encode(current)
	if err != nil {
		return err
	}
	after, err := Encode(next)
	if err != nil {
		return err
	}
	if bytes.Equal(before, after) {
		return nil
	}
	r.data, r.exists = after, true
	r.writes++
	return nil
}

func (r *MemoryRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Exists: r.exists, Data: bytes.Clone(r.data)}, nil
}

func (r *MemoryRepository) Restore(ctx context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data, r.exists = bytes.Clone(snap.Data), snap.Exists
	r.writes++
	return nil
}

// Writes returns how many times the persisted state was replaced.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Bytes returns the current persisted bytes.
func (r *MemoryRepository) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.data)
}

var _ Repository = (*MemoryRepository)(nil)
