package resource

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bridgeerrors "github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
)

// fakeContext implements only what the tests call; any other method panics
// on the nil embedded interface.
type fakeContext struct {
	native.Context
	closed   atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	armor    bool
}

func (f *fakeContext) Close() error {
	f.closed.Add(1)
	return nil
}

func (f *fakeContext) SetArmor(yes bool) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	f.armor = yes
	f.inFlight.Add(-1)
}

func (f *fakeContext) Armor() bool {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	return f.armor
}

func TestContextHandle_SerializesSharedAndExclusive(t *testing.T) {
	fc := &fakeContext{}
	ch := NewContextHandle(fc)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			_ = WithExclusive(ch, func(c native.Context) error {
				c.SetArmor(v)
				return nil
			})
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = WithShared(ch, func(c native.Context) error {
				c.Armor()
				return nil
			})
		}()
	}
	wg.Wait()

	if fc.overlap.Load() {
		t.Fatal("native calls overlapped on one handle")
	}
}

func TestGuard_ReleaseIdempotent(t *testing.T) {
	ch := NewContextHandle(&fakeContext{})

	g, err := ch.AcquireExclusive()
	if err != nil {
		t.Fatal(err)
	}
	g.Release()
	g.Release()

	done := make(chan struct{})
	go func() {
		g2, err := ch.AcquireShared()
		if err == nil {
			g2.Release()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handle still locked after Release")
	}
}

func TestWithExclusive_ReleasesOnError(t *testing.T) {
	ch := NewContextHandle(&fakeContext{})
	boom := errors.New("boom")

	if err := WithExclusive(ch, func(native.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !ch.Valid() {
		t.Fatal("ordinary error invalidated the handle")
	}
	if err := WithShared(ch, func(native.Context) error { return nil }); err != nil {
		t.Fatalf("lock not released after error: %v", err)
	}
}

func TestWithExclusive_ReleasesOnPanic(t *testing.T) {
	ch := NewContextHandle(&fakeContext{})

	func() {
		defer func() { _ = recover() }()
		_ = WithExclusive(ch, func(native.Context) error { panic("native crash") })
	}()

	if err := WithShared(ch, func(native.Context) error { return nil }); err != nil {
		t.Fatalf("lock not released after panic: %v", err)
	}
}

func TestContextHandle_Invalidation(t *testing.T) {
	ch := NewContextHandle(&fakeContext{})
	lost := native.Errorf(native.CodeNotOperational, "engine exited")

	err := WithExclusive(ch, func(native.Context) error { return lost })
	if !errors.Is(err, native.ErrEngineUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if ch.Valid() {
		t.Fatal("handle still valid after engine loss")
	}

	_, err = ch.AcquireShared()
	var e *bridgeerrors.Error
	if !errors.As(err, &e) || e.Kind != bridgeerrors.KindEngineUnavailable {
		t.Fatalf("acquire after invalidation err = %v", err)
	}
	if !errors.Is(err, lost) {
		t.Error("cause not preserved")
	}
}

func TestContextHandle_DropClosesOnce(t *testing.T) {
	fc := &fakeContext{}
	ch := NewContextHandle(fc)

	if err := ch.Drop(); err != nil {
		t.Fatal(err)
	}
	if err := ch.Drop(); err != nil {
		t.Fatal(err)
	}
	if fc.closed.Load() != 1 {
		t.Fatalf("Close called %d times", fc.closed.Load())
	}

	_, err := ch.AcquireExclusive()
	var e *bridgeerrors.Error
	if !errors.As(err, &e) || e.Kind != bridgeerrors.KindClosed {
		t.Fatalf("acquire after drop err = %v", err)
	}
}

func TestContextHandle_DropWaitsForCall(t *testing.T) {
	table := NewTable()
	fc := &fakeContext{}
	h, _, _ := table.NewContext(fc)

	ch, release, err := table.BorrowContext(nil, h)
	if err != nil {
		t.Fatal(err)
	}
	g, _ := ch.AcquireExclusive()

	if err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if fc.closed.Load() != 0 {
		t.Fatal("native context closed during in-flight call")
	}

	g.Release()
	if err := release(); err != nil {
		t.Fatal(err)
	}
	if fc.closed.Load() != 1 {
		t.Fatal("native context not closed after the call returned")
	}
}
