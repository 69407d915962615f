// Package settings persists per-variant print settings.
//
// The settings block behaves as a small transactional key-value store: it is
// only ever read and written as a whole, never patched field by field. A
// crash between read and write therefore leaves the previous complete block
// on disk. [Transaction] snapshots the block before a calibration run and
// restores it on every exit path that does not commit.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Block maps variant ids to their settings.
type Block map[string]layout.PrintSettings

// Clone returns an independent copy of b.
func (b Block) Clone() Block {
	out := make(Block, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Settings returns the settings for id, or the defaults when the block has
// no record for it.
func (b Block) Settings(id string) layout.PrintSettings {
	if s, ok := b[id]; ok {
		return s
	}
	return layout.DefaultSettings()
}

// IDs returns the variant ids in sorted order.
func (b Block) IDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Repository is a durable store of the settings block.
type Repository interface {
	// Load reads the whole block. A missing store yields an empty block.
	Load(ctx context.Context) (Block, error)

	// Update reads the whole block, passes a copy to fn and writes the whole
	// result back. Nothing is written when fn returns an error or an
	// identical block.
	Update(ctx context.Context, fn func(Block) (Block, error)) error

	// Snapshot captures the exact persisted state.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Restore puts a snapshot back byte for byte.
	Restore(ctx context.Context, snap Snapshot) error
}

// Snapshot is the raw persisted form of a block.
type Snapshot struct {
	Exists bool
	Data   []byte
}

// Clamped records a persisted value that was outside its allowed range.
type Clamped struct {
	Variant string
	From    layout.PrintSettings
	To      layout.PrintSettings
}

// document is the on-disk layout.
type document struct {
	Variants Block `json:"variants"`
}

// Encode serializes a block. Keys are sorted, so equal blocks encode to
// equal bytes.
func Encode(b Block) ([]byte, error) {
	if b == nil {
		b = Block{}
	}
	data, err := json.MarshalIndent(document{Variants: b}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a block and clamps out-of-range values, reporting each one.
func Decode(data []byte) (Block, []Clamped, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse settings: %w", err)
	}

	block := make(Block, len(doc.Variants))
	var clamped []Clamped
	for _, id := range doc.Variants.IDs() {
		s := doc.Variants[id]
		c := s.Clamp()
		if c != s {
			clamped = append(clamped, Clamped{Variant: id, From: s, To: c})
		}
		block[id] = c
	}
	return block, clamped, nil
}
