package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateAsking State = "asking"

type draft struct {
	Name  string
	Count int
}

func TestTableCreatesOnTouchAndDropsOnIdle(t *testing.T) {
	tbl := NewTable[draft]()

	require.NoError(t, tbl.Do(1, func(s *Session[draft]) error {
		assert.Equal(t, StateIdle, s.State)
		s.State = stateAsking
		s.Data.Name = "Ivan"
		return nil
	}))
	assert.Equal(t, 1, tbl.Len())
	snap := tbl.Snapshot(1)
	assert.Equal(t, stateAsking, snap.State)
	assert.Equal(t, "Ivan", snap.Data.Name)
	assert.True(t, tbl.InProgress(1))

	require.NoError(t, tbl.Do(1, func(s *Session[draft]) error {
		s.Reset()
		return nil
	}))
	assert.Zero(t, tbl.Len())
	assert.Equal(t, StateIdle, tbl.GetState(1))
	assert.Empty(t, tbl.Snapshot(1).Data.Name)
}

func TestTableIdleTouchLeavesNoSession(t *testing.T) {
	tbl := NewTable[draft]()
	require.NoError(t, tbl.Do(5, func(*Session[draft]) error { return nil }))
	assert.Zero(t, tbl.Len())
}

func TestTableReturnsCallbackError(t *testing.T) {
	tbl := NewTable[draft]()
	boom := errors.New("boom")
	err := tbl.Do(1, func(s *Session[draft]) error {
		s.State = stateAsking
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, stateAsking, tbl.GetState(1))
}

func TestTableClear(t *testing.T) {
	tbl := NewTable[draft]()
	require.NoError(t, tbl.Do(2, func(s *Session[draft]) error {
		s.State = stateAsking
		return nil
	}))
	tbl.Clear(2)
	assert.False(t, tbl.InProgress(2))
	assert.Zero(t, tbl.Len())
}

func TestTableSerializesSameUser(t *testing.T) {
	tbl := NewTable[draft]()
	const workers, rounds = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_ = tbl.Do(42, func(s *Session[draft]) error {
					s.State = stateAsking
					s.Data.Count++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers*rounds, tbl.Snapshot(42).Data.Count)
}

func TestTableUsersAreIndependent(t *testing.T) {
	tbl := NewTable[draft]()
	require.NoError(t, tbl.Do(1, func(s *Session[draft]) error {
		s.State = stateAsking
		s.Data.Name = "one"
		return nil
	}))
	require.NoError(t, tbl.Do(2, func(s *Session[draft]) error {
		s.State = stateAsking
		s.Data.Name = "two"
		return nil
	}))
	tbl.Clear(1)
	assert.Equal(t, "two", tbl.Snapshot(2).Data.Name)
	assert.Equal(t, StateIdle, tbl.GetState(1))
}
