package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLazyLoadsOnceConcurrently(t *testing.T) {
	var calls int
	lazy := NewLazy(func(context.Context) (int, error) {
		calls++
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := lazy.Get(context.Background())
			if err != nil || v != 42 {
				t.Errorf("Get() = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 || lazy.Loads() != 1 {
		t.Fatalf("loader calls = %d, Loads() = %d, want 1", calls, lazy.Loads())
	}
}

func TestLazyCachesFailure(t *testing.T) {
	boom := errors.New("model file missing")
	calls := 0
	lazy := NewLazy(func(context.Context) (string, error) {
		calls++
		return "", boom
	})

	for i := 0; i < 3; i++ {
		if _, err := lazy.Get(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Get() err = %v, want %v", err, boom)
		}
	}
	if calls != 1 {
		t.Errorf("loader retried: %d calls", calls)
	}
	if !lazy.Loaded() {
		t.Error("Loaded() = false after a failed load")
	}
}

func TestLazyClosesOnce(t *testing.T) {
	closes := 0
	lazy := NewLazy(func(context.Context) (int, error) {
		return 1, nil
	}).OnClose(func(int) error {
		closes++
		return nil
	})

	if err := lazy.Close(); err != nil || closes != 0 {
		t.Fatalf("Close() before load: err=%v closes=%d", err, closes)
	}
	if _, err := lazy.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := lazy.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if closes != 1 {
		t.Errorf("closer ran %d times, want 1", closes)
	}
}
