package resources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func constant(v string, present bool) func(string, bool) (string, bool) {
	return func(string, bool) (string, bool) { return v, present }
}

func TestStoreKeepsOrder(t *testing.T) {
	s := NewStore[string, string]("test", nil)
	defer s.Close()
	s.Reset([]string{"b", "a", "b"}, []string{"B", "A", "dup"})
	assert.Equal(t, []string{"b", "a"}, s.Keys())
	assert.Equal(t, []string{"B", "A"}, s.Values())

	ok := func(context.Context) (Outcome[string, string], error) {
		return Outcome[string, string]{Value: "C", Present: true}, nil
	}
	require.NoError(t, wait(t, s.Mutate("add", "c", false, constant("C", true), ok)))
	require.NoError(t, wait(t, s.Mutate("add", "z", true, constant("Z", true), ok)))
	assert.Equal(t, []string{"z", "b", "a", "c"}, s.Keys())
}

func TestStoreConfirmationUsesServiceValue(t *testing.T) {
	s := NewStore[string, string]("test", nil)
	defer s.Close()
	s.Reset([]string{"k"}, []string{"v0"})

	m := s.Mutate("update", "k", false, constant("local", true), func(context.Context) (Outcome[string, string], error) {
		return Outcome[string, string]{Value: "server", Present: true}, nil
	})
	require.NoError(t, wait(t, m))
	assert.Equal(t, Confirmed, m.State())
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "server", v)
	assert.Zero(t, s.Pending("k"))
}

func TestStoreRollbackRestoresOnlyItsOwnDelta(t *testing.T) {
	s := NewStore[string, string]("test", nil)
	defer s.Close()
	s.Reset([]string{"k"}, []string{"v0"})

	first := make(chan error)
	second := make(chan error)
	call := func(ch chan error, v string) Call[string, string] {
		return func(ctx context.Context) (Outcome[string, string], error) {
			err := <-ch
			return Outcome[string, string]{Value: v, Present: true}, err
		}
	}
	m1 := s.Mutate("update", "k", false, constant("v1", true), call(first, "v1"))
	m2 := s.Mutate("update", "k", false, constant("v2", true), call(second, "v2"))
	assert.Equal(t, 2, s.Pending("k"))

	first <- errBoom
	assert.ErrorIs(t, wait(t, m1), errBoom)
	assert.Equal(t, RolledBack, m1.State())
	v, _ := s.Get("k")
	assert.Equal(t, "v2", v, "newer optimistic value survives an older failure")

	second <- nil
	require.NoError(t, wait(t, m2))
	v, _ = s.Get("k")
	assert.Equal(t, "v2", v)
}

func TestStoreRekey(t *testing.T) {
	s := NewStore[int, string]("test", nil)
	defer s.Close()
	s.Reset([]int{1, 2}, []string{"one", "two"})

	m := s.Mutate("create", -1, true,
		func(string, bool) (string, bool) { return "new", true },
		func(context.Context) (Outcome[int, string], error) {
			return Outcome[int, string]{Value: "new", Present: true, Rekey: true, NewKey: 9}, nil
		})
	require.NoError(t, wait(t, m))
	assert.Equal(t, []int{9, 1, 2}, s.Keys())
	_, ok := s.Get(-1)
	assert.False(t, ok)
}

func TestStoreErrorsChannelDoesNotBlock(t *testing.T) {
	s := NewStore[int, int]("test", nil)
	defer s.Close()
	fail := func(context.Context) (Outcome[int, int], error) { return Outcome[int, int]{}, errBoom }
	for i := 0; i < cap(s.errs)+5; i++ {
		m := s.Mutate("add", i, false, func(int, bool) (int, bool) { return 1, true }, fail)
		assert.ErrorIs(t, wait(t, m), errBoom)
	}
	assert.Len(t, s.Errors(), cap(s.errs))
	assert.Empty(t, s.Keys())
	err := <-s.Errors()
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "test add")
}

func TestStoreClose(t *testing.T) {
	s := NewStore[string, string]("test", nil)
	s.Reset([]string{"k"}, []string{"v0"})

	started := make(chan struct{})
	m := s.Mutate("update", "k", false, constant("v1", true), func(ctx context.Context) (Outcome[string, string], error) {
		close(started)
		<-ctx.Done()
		return Outcome[string, string]{}, ctx.Err()
	})
	<-started
	s.Close()

	assert.Equal(t, Superseded, m.State(), "results arriving after close are discarded")
	assert.Empty(t, s.Errors())

	late := s.Mutate("update", "k", false, constant("v2", true), nil)
	assert.ErrorIs(t, late.Err(), ErrClosed)
	assert.Equal(t, RolledBack, late.State())
	s.Close()
}

func TestMutationWaitHonoursContext(t *testing.T) {
	s := NewStore[string, string]("test", nil)
	release := make(chan struct{})
	m := s.Mutate("add", "k", false, constant("v", true), func(context.Context) (Outcome[string, string], error) {
		<-release
		return Outcome[string, string]{Value: "v", Present: true}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.Canceled)
	assert.Equal(t, Applied, m.State())

	close(release)
	require.NoError(t, m.Wait(context.Background()))
	s.Close()
}
