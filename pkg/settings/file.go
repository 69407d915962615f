package settings

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/errors"
)

// FileRepository stores the settings block as a JSON file.
// Writes go to a temporary file in the same directory that is then renamed
// over the target, so readers never observe a partial block.
type FileRepository struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
}

// NewFileRepository creates a repository backed by path. The file does not
// need to exist yet.
func NewFileRepository(path string, logger *log.Logger) *FileRepository {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &FileRepository{path: path, logger: logger}
}

// Path returns the settings file path.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads and decodes the block.
func (r *FileRepository) Load(ctx context.Context) (Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepository) load() (Block, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return Block{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "read settings %s", r.path)
	}

	block, clamped, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "settings %s", r.path)
	}
	for _, c := range clamped {
		r.logger.Warn("Clamped out-of-range settings", "variant", c.Variant, "from", c.From, "to", c.To)
	}
	return block, nil
}

// Update performs a whole-block read-modify-write.
func (r *FileRepository) Update(ctx context.Context, fn func(Block) (Block, error)) error {
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
	return r.write(after)
}

// Snapshot captures the raw file contents, or its absence.
func (r *FileRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeConfig, err, "snapshot settings %s", r.path)
	}
	return Snapshot{Exists: true, Data: data}, nil
}

// Restore writes the snapshot bytes back unchanged, or removes the file if
// it did not exist when the snapshot was taken.
func (r *FileRepository) Restore(ctx context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !snap.Exists {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeInternal, err, "remove settings %s", r.path)
		}
		return nil
	}
	return r.write(snap.Data)
}

func (r *FileRepository) write(data []byte) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create settings dir")
	}

	tmp, err := os.CreateTemp(dir, ".pagefit-settings-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create temp settings file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// The rename replaces the file, so carry its permissions over.
	mode := os.FileMode(0644)
	if fi, err := os.Stat(r.path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "chmod temp settings file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write temp settings file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "close temp settings file")
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "replace settings %s", r.path)
	}
	return nil
}

var _ Repository = (*FileRepository)(nil)
