package sched

import (
	"sync"
	"testing"
)

func TestRoundToPow2(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want uint64
	}{
		{"below minimum", 1, 2},
		{"zero", 0, 2},
		{"already pow2", 8, 8},
		{"just above pow2", 9, 16},
		{"large", 1000, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundToPow2(tt.in); got != tt.want {
				t.Errorf("roundToPow2(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestQueuePushPopOrder(t *testing.T) {
	q := newQueue[int](4)
	for i := 0; i < 4; i++ {
		if err := q.tryPush(i); err != nil {
			t.Fatalf("tryPush(%d): %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		got, err := q.tryPop()
		if err != nil {
			t.Fatalf("tryPop: %v", err)
		}
		if got != i {
			t.Errorf("tryPop = %d, want %d", got, i)
		}
	}
}

func TestQueueFullReturnsError(t *testing.T) {
	q := newQueue[int](2) // rounds up to 2
	if err := q.tryPush(1); err != nil {
		t.Fatalf("tryPush(1): %v", err)
	}
	if err := q.tryPush(2); err != nil {
		t.Fatalf("tryPush(2): %v", err)
	}
	if err := q.tryPush(3); err != errFull {
		t.Errorf("tryPush on full queue = %v, want errFull", err)
	}
}

func TestQueueEmptyReturnsError(t *testing.T) {
	q := newQueue[int](2)
	if _, err := q.tryPop(); err != errEmpty {
		t.Errorf("tryPop on empty queue = %v, want errEmpty", err)
	}
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	const n = 2000
	q := newQueue[int](64)

	var wg sync.WaitGroup
	wg.Add(4)
	for p := 0; p < 4; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				v := base*(n/4) + i
				for q.tryPush(v) != nil {
				}
			}
		}(p)
	}

	seen := make([]bool, n)
	var mu sync.Mutex
	var consumeWG sync.WaitGroup
	consumeWG.Add(4)
	for c := 0; c < 4; c++ {
		go func() {
			defer consumeWG.Done()
			for i := 0; i < n/4; i++ {
				var v int
				var err error
				for {
					v, err = q.tryPop()
					if err == nil {
						break
					}
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	consumeWG.Wait()

	for i, ok := range seen {
		if !ok {
			t.Fatalf("value %d never observed by a consumer", i)
		}
	}
}
