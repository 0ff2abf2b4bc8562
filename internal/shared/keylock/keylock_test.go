package keylock

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_TryLockPerKey(t *testing.T) {
	locks := New[int64]()

	release, ok := locks.TryLock(1)
	require.True(t, ok)

	_, ok = locks.TryLock(1)
	require.False(t, ok, "same key must be rejected while held")

	releaseOther, ok := locks.TryLock(2)
	require.True(t, ok, "unrelated key must stay available")
	releaseOther()

	release()
	release()
	require.False(t, locks.Held(1))

	_, ok = locks.TryLock(1)
	require.True(t, ok)
}

func TestSet_ZeroValue(t *testing.T) {
	var locks Set[string]
	release, ok := locks.TryLock("term")
	require.True(t, ok)
	release()
}

func TestFlight_FollowersShareLeaderResult(t *testing.T) {
	var f Flight[int64, int]
	started := make(chan struct{})
	unblock := make(chan struct{})
	calls := 0

	var wg sync.WaitGroup
	var leaderVal, followerVal int
	var leaderFlag, followerFlag bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		leaderVal, _, leaderFlag = f.Do(context.Background(), 7, func() (int, error) {
			calls++
			close(started)
			<-unblock
			return 42, nil
		})
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		followerVal, _, followerFlag = f.Do(context.Background(), 7, func() (int, error) {
			calls++
			return -1, nil
		})
	}()

	for f.Waiting(7) != 1 {
		runtime.Gosched()
	}
	close(unblock)
	wg.Wait()

	require.True(t, leaderFlag)
	require.False(t, followerFlag)
	require.Equal(t, 42, leaderVal)
	require.Equal(t, 42, followerVal)
	require.Equal(t, 1, calls)
}

func TestFlight_FollowerHonoursItsContext(t *testing.T) {
	var f Flight[string, int]
	started := make(chan struct{})
	unblock := make(chan struct{})
	leaderDone := make(chan int)

	go func() {
		v, _, _ := f.Do(context.Background(), "pet", func() (int, error) {
			close(started)
			<-unblock
			return 42, nil
		})
		leaderDone <- v
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	followerErr := make(chan error)
	go func() {
		_, err, leader := f.Do(ctx, "pet", func() (int, error) { return -1, nil })
		if leader {
			err = errors.New("follower ran its own call")
		}
		followerErr <- err
	}()
	for f.Waiting("pet") != 1 {
		runtime.Gosched()
	}

	cancel()
	require.ErrorIs(t, <-followerErr, context.Canceled)
	require.Zero(t, f.Waiting("pet"))

	close(unblock)
	require.Equal(t, 42, <-leaderDone)
}
