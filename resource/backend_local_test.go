package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(TypeKey, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	typeID, ok := b.TypeID(handle)
	if !ok || typeID != TypeKey {
		t.Fatalf("TypeID = %v, %v", typeID, ok)
	}

	val, now, err := b.Drop(handle)
	if err != nil || !now {
		t.Fatalf("Drop = %v, %v", now, err)
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	if _, _, err := b.Drop(handle); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("second Drop err = %v", err)
	}
}

func TestLocalBackend_BorrowTypeCheck(t *testing.T) {
	b := NewLocalBackend()
	handle, _ := b.Create(TypeContext, "ctx")

	if _, ok := b.Borrow(handle, TypeKey); ok {
		t.Fatal("Borrow with wrong type should fail")
	}
	v, ok := b.Borrow(handle, TypeContext)
	if !ok || v != "ctx" {
		t.Fatalf("Borrow = %v, %v", v, ok)
	}
	if _, last := b.ReturnBorrow(handle); last {
		t.Fatal("ReturnBorrow on live handle reported release")
	}
	if _, last := b.ReturnBorrow(handle); last {
		t.Fatal("ReturnBorrow without borrow should not release")
	}
}

func TestLocalBackend_DropWhileBorrowed(t *testing.T) {
	b := NewLocalBackend()
	handle, _ := b.Create(TypeContext, "ctx")

	b.Borrow(handle, TypeContext)
	b.Borrow(handle, TypeContext)

	_, now, err := b.Drop(handle)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if now {
		t.Fatal("Drop with outstanding borrows released immediately")
	}
	if _, ok := b.Get(handle); ok {
		t.Fatal("dropped handle still resolves")
	}
	if _, ok := b.Borrow(handle, TypeContext); ok {
		t.Fatal("dropped handle can be borrowed")
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}

	if _, last := b.ReturnBorrow(handle); last {
		t.Fatal("first return released")
	}
	v, last := b.ReturnBorrow(handle)
	if !last || v != "ctx" {
		t.Fatalf("last return = %v, %v", v, last)
	}

	// The slot is free only now.
	h2, _ := b.Create(TypeKey, "next")
	if h2 != handle {
		t.Fatalf("Expected handle reuse %d, got %d", handle, h2)
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(TypeKey, "first")
	h2, _ := b.Create(TypeKey, "second")
	b.Drop(h1)

	h3, _ := b.Create(TypeKey, "third")
	if h3 != h1 {
		t.Fatalf("Expected handle reuse: got %d, want %d", h3, h1)
	}

	val, _ := b.Get(h3)
	if val != "third" {
		t.Fatalf("Expected 'third', got %v", val)
	}
	val, _ = b.Get(h2)
	if val != "second" {
		t.Fatalf("Expected 'second', got %v", val)
	}
}

type dropCounter struct {
	count int
	err   error
}

func (d *dropCounter) Drop() error {
	d.count++
	return d.err
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	d1 := &dropCounter{}
	d2 := &dropCounter{err: errors.New("boom")}
	b.Create(TypeContext, d1)
	h, _ := b.Create(TypeContext, d2)
	b.Borrow(h, TypeContext)

	if err := b.Close(); err == nil {
		t.Fatal("Close should report the failing Drop")
	}
	if d1.count != 1 || d2.count != 1 {
		t.Fatalf("drop counts = %d, %d", d1.count, d2.count)
	}

	if _, err := b.Create(TypeKey, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Create after close err = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h, err := b.Create(TypeKey, n)
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			if v, ok := b.Get(h); !ok || v != n {
				t.Errorf("Get(%d) = %v, %v", h, v, ok)
			}
			b.Drop(h)
		}(i)
	}

	wg.Wait()
	if b.Len() != 0 {
		t.Fatalf("Len = %d after concurrent drops", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create(TypeKey, "a")
	h, _ := b.Create(TypeKey, "b")
	b.Create(TypeContext, "c")
	b.Drop(h)

	var seen []any
	b.Each(func(_ Handle, _ TypeID, v any) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "c" {
		t.Fatalf("Each saw %v", seen)
	}

	count := 0
	b.Each(func(Handle, TypeID, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each did not stop early: %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Error("Get(0) should fail")
	}
	if _, ok := b.Get(999); ok {
		t.Error("Get(999) should fail")
	}
	if _, ok := b.Borrow(0, TypeKey); ok {
		t.Error("Borrow(0) should fail")
	}
	if _, ok := b.ReturnBorrow(999); ok {
		t.Error("ReturnBorrow(999) should fail")
	}
	if _, _, err := b.Drop(999); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Drop(999) err = %v", err)
	}
}
