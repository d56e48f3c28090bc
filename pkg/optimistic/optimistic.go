// Package optimistic generalizes the "apply locally, then confirm remotely,
// roll back on failure" pattern used around cache mutations (notification
// read-state, persisted session caches). Instead of every caller hand-rolling
// a snapshot and restore, Apply captures the snapshot, applies the local
// change, runs the remote commit, and restores the snapshot when the commit
// fails.
package optimistic

import "context"

// Mutation describes one optimistic update over a state holder of type T.
type Mutation[T any] struct {
	// Snapshot returns a copy of the current state sufficient to undo Apply.
	Snapshot func() T

	// Apply performs the local, user-visible change.
	Apply func()

	// Commit performs the authoritative remote change.
	Commit func(ctx context.Context) error

	// Rollback restores the snapshot after a failed commit.
	Rollback func(snapshot T)
}

// Do runs the mutation: snapshot, apply, commit; on commit failure the
// snapshot is restored and the commit error returned. The caller observes
// the optimistic state for the duration of the commit.
func Do[T any](ctx context.Context, m Mutation[T]) error {
	snapshot := m.Snapshot()
	m.Apply()
	if err := m.Commit(ctx); err != nil {
		m.Rollback(snapshot)
		return err
	}
	return nil
}
