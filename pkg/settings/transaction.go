package settings

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Transaction guards a repository for the duration of a calibration run.
// Unless Commit is called, Close puts the pre-run snapshot back.
type Transaction struct {
	repo     Repository
	snapshot Snapshot
	done     bool
}

// Begin snapshots repo.
func Begin(ctx context.Context, repo Repository) (*Transaction, error) {
	snap, err := repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{repo: repo, snapshot: snap}, nil
}

// Snapshot returns the pre-run state.
func (tx *Transaction) Snapshot() Snapshot {
	return tx.snapshot
}

// Done reports whether the transaction was committed or rolled back.
func (tx *Transaction) Done() bool {
	return tx.done
}

// Commit keeps whatever was written during the transaction.
func (tx *Transaction) Commit() {
	tx.done = true
}

// Rollback restores the pre-run snapshot exactly.
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.done = true
	return tx.repo.Restore(ctx, tx.snapshot)
}

// RollbackTo restores the pre-run snapshot and then writes the given
// settings over it, keeping partial progress for those variants only.
func (tx *Transaction) RollbackTo(ctx context.Context, keep map[string]layout.PrintSettings) error {
	if err := tx.Rollback(ctx); err != nil {
		return err
	}
	if len(keep) == 0 {
		return nil
	}
	return tx.repo.Update(ctx, func(b Block) (Block, error) {
		for id, s := range keep {
			b[id] = s.Clamp()
		}
		return b, nil
	})
}

// Close rolls back unless the transaction already finished.
func (tx *Transaction) Close(ctx context.Context) error {
	if tx.done {
		return nil
	}
	return tx.Rollback(ctx)
}

// WithTransaction runs fn inside a transaction. A nil error commits; an
// error or a panic restores the snapshot unless fn already finished the
// transaction itself (for example with RollbackTo). fn reports cancellation
// by returning ctx.Err(); restoring ignores cancellation of ctx.
func WithTransaction(ctx context.Context, repo Repository, fn func(tx *Transaction) error) (err error) {
	tx, err := Begin(ctx, repo)
	if err != nil {
		return err
	}

	restoreCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Close(restoreCtx)
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if cerr := tx.Close(restoreCtx); cerr != nil {
			return stderrors.Join(err, fmt.Errorf("restore settings: %w", cerr))
		}
		return err
	}
	if !tx.done {
		tx.Commit()
	}
	return nil
}
