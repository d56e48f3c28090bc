package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readState struct {
	unread int
	read   map[string]bool
}

func TestDo_CommitSuccessKeepsApplied(t *testing.T) {
	state := &readState{unread: 2, read: map[string]bool{"n1": false, "n2": false}}

	err := Do(context.Background(), Mutation[readState]{
		Snapshot: func() readState {
			copied := map[string]bool{}
			for k, v := range state.read {
				copied[k] = v
			}
			return readState{unread: state.unread, read: copied}
		},
		Apply: func() {
			state.read["n1"] = true
			state.unread--
		},
		Commit:   func(ctx context.Context) error { return nil },
		Rollback: func(s readState) { *state = s },
	})

	require.NoError(t, err)
	assert.Equal(t, 1, state.unread)
	assert.True(t, state.read["n1"])
}

func TestDo_CommitFailureRollsBack(t *testing.T) {
	state := &readState{unread: 2, read: map[string]bool{"n1": false, "n2": false}}
	commitErr := errors.New("server rejected")

	err := Do(context.Background(), Mutation[readState]{
		Snapshot: func() readState {
			copied := map[string]bool{}
			for k, v := range state.read {
				copied[k] = v
			}
			return readState{unread: state.unread, read: copied}
		},
		Apply: func() {
			state.read["n1"] = true
			state.unread--
		},
		Commit:   func(ctx context.Context) error { return commitErr },
		Rollback: func(s readState) { *state = s },
	})

	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, 2, state.unread)
	assert.False(t, state.read["n1"])
}

func TestDo_ApplyVisibleDuringCommit(t *testing.T) {
	counter := 0
	var seen int

	err := Do(context.Background(), Mutation[int]{
		Snapshot: func() int { return counter },
		Apply:    func() { counter = 5 },
		Commit: func(ctx context.Context) error {
			seen = counter
			return nil
		},
		Rollback: func(s int) { counter = s },
	})

	require.NoError(t, err)
	assert.Equal(t, 5, seen)
}
