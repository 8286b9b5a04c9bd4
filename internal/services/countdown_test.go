package services

import (
	"sync"
	"testing"
	"time"
)

func TestCountdownTicksThenCompletes(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})

	c := NewCountdown(3, 5*time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(done) },
	)
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 {
		t.Fatalf("expected a pulse per tick, got %v", ticks)
	}
	if ticks[0] != 2 || ticks[1] != 1 || ticks[2] != 0 {
		t.Fatalf("expected ticks [2 1 0], got %v", ticks)
	}
}

func TestCountdownFinalPulsePrecedesCompletion(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	c := NewCountdown(1, 5*time.Millisecond,
		func(remaining int) {
			mu.Lock()
			order = append(order, "tick")
			mu.Unlock()
			if remaining != 0 {
				t.Errorf("single-tick countdown pulsed with remaining %d", remaining)
			}
		},
		func() {
			mu.Lock()
			order = append(order, "done")
			mu.Unlock()
			close(done)
		},
	)
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "tick" || order[1] != "done" {
		t.Fatalf("expected final pulse before completion, got %v", order)
	}
}

func TestCountdownZeroTicksCompletesWithoutPulse(t *testing.T) {
	var mu sync.Mutex
	pulses := 0
	done := make(chan struct{})

	c := NewCountdown(0, 5*time.Millisecond,
		func(int) {
			mu.Lock()
			pulses++
			mu.Unlock()
		},
		func() { close(done) },
	)
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if pulses != 0 {
		t.Fatalf("expected no pulses for a zero-tick countdown, got %d", pulses)
	}
}

func TestCountdownStopBeforeElapse(t *testing.T) {
	done := make(chan struct{})

	c := NewCountdown(5, 20*time.Millisecond, nil, func() { close(done) })
	c.Start()

	if !c.Stop() {
		t.Fatal("Stop before elapse should report true")
	}

	select {
	case <-done:
		t.Fatal("onDone fired after Stop")
	case <-time.After(150 * time.Millisecond):
	}

	if c.Stop() {
		t.Fatal("second Stop should report false")
	}
}

func TestCountdownStopAfterElapseReportsFalse(t *testing.T) {
	done := make(chan struct{})

	c := NewCountdown(1, 5*time.Millisecond, nil, func() { close(done) })
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not complete")
	}

	if c.Stop() {
		t.Fatal("Stop after elapse should report false")
	}
}

func TestCountdownStartIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	completions := 0
	done := make(chan struct{})

	c := NewCountdown(1, 5*time.Millisecond, nil, func() {
		mu.Lock()
		completions++
		if completions == 1 {
			close(done)
		}
		mu.Unlock()
	})
	c.Start()
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not complete")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if completions != 1 {
		t.Fatalf("expected one completion, got %d", completions)
	}
}
