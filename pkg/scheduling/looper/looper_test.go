package looper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/logpipe/internal/testutil"
	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
)

func newLooper(t *testing.T) *Looper {
	t.Helper()
	l, err := New(Config{})
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-l.Quit() })
	return l
}

func TestDefaultName(t *testing.T) {
	l := newLooper(t)
	testutil.AssertEqual(t, l.Name(), "main")
}

func TestPostRunsInOrder(t *testing.T) {
	l := newLooper(t)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		testutil.AssertNoError(t, l.Post(func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}

	testutil.AssertNoError(t, l.Invoke(func(context.Context) {}))

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, len(got), 10)
	for i, v := range got {
		testutil.AssertEqual(t, v, i)
	}
}

func TestPostDelayed(t *testing.T) {
	l := newLooper(t)

	start := time.Now()
	ran := make(chan time.Duration, 1)
	testutil.AssertNoError(t, l.PostDelayed(func(context.Context) {
		ran <- time.Since(start)
	}, 20*time.Millisecond))

	select {
	case elapsed := <-ran:
		if elapsed < 20*time.Millisecond {
			t.Errorf("callback ran after %v, want >= 20ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("delayed callback never ran")
	}
}

func TestInvokeWaitsForCallback(t *testing.T) {
	l := newLooper(t)

	var value int32
	testutil.AssertNoError(t, l.Invoke(func(context.Context) {
		time.Sleep(5 * time.Millisecond)
		atomic.StoreInt32(&value, 7)
	}))
	testutil.AssertEqual(t, atomic.LoadInt32(&value), int32(7))
}

func TestQuit(t *testing.T) {
	l, err := New(Config{Name: "ui"})
	testutil.AssertNoError(t, err)

	var ran int32
	testutil.AssertNoError(t, l.PostDelayed(func(context.Context) {
		atomic.StoreInt32(&ran, 1)
	}, time.Hour))

	select {
	case <-l.Quit():
	case <-time.After(time.Second):
		t.Fatal("looper did not quit")
	}

	testutil.AssertEqual(t, l.IsQuit(), true)
	testutil.AssertEqual(t, atomic.LoadInt32(&ran), int32(0))

	err = l.Post(func(context.Context) {})
	if !errors.Is(err, lperrors.ErrClosed) {
		t.Fatalf("Post after Quit: got %v, want ErrClosed", err)
	}
	if err := l.Invoke(func(context.Context) {}); !errors.Is(err, lperrors.ErrClosed) {
		t.Fatalf("Invoke after Quit: got %v, want ErrClosed", err)
	}
}

func TestPostNil(t *testing.T) {
	l := newLooper(t)
	testutil.AssertError(t, l.Post(nil))
}
