package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBoundedQueue_FIFOAndCapacity(t *testing.T) {
	q := NewBoundedQueue[int](2)
	if !q.Push(1) || !q.Push(2) {
		t.Fatal("push within capacity failed")
	}
	if q.Push(3) {
		t.Fatal("push beyond capacity succeeded")
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	for want := 1; want <= 2; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = %d,%v want %d,true", got, ok, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue returned an item")
	}
}

func TestBoundedQueue_DrainAfterClose(t *testing.T) {
	q := NewBoundedQueue[int](4)
	q.Push(1)
	q.Push(2)
	q.Close()
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on a closed queue returned an item")
	}
	got := q.Drain()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Drain = %v, want [1 2]", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d", q.Len())
	}
}

func TestBoundedQueue_SetCapacity(t *testing.T) {
	q := NewBoundedQueue[int](1)
	q.Push(1)
	if q.Push(2) {
		t.Fatal("expected overflow at capacity 1")
	}
	q.SetCapacity(3)
	if q.Capacity() != 3 {
		t.Fatalf("Capacity = %d, want 3", q.Capacity())
	}
	if !q.Push(2) {
		t.Fatal("push after growing capacity failed")
	}
}

func TestBoundedQueue_CloseWakesPop(t *testing.T) {
	q := NewBoundedQueue[int](4)
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("Pop returned an item after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop not woken by Close")
	}
	if q.Push(1) {
		t.Error("Push accepted after Close")
	}
}

func TestBoundedQueue_MPMC(t *testing.T) {
	q := NewBoundedQueue[int](128)
	producers, perProducer := 8, 2000
	total := int64(producers * perProducer)

	var sent, received, count int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := pid*perProducer + i + 1
				for !q.Push(v) {
					time.Sleep(time.Microsecond)
				}
				atomic.AddInt64(&sent, int64(v))
			}
		}(p)
	}

	var cwg sync.WaitGroup
	for c := 0; c < 4; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				atomic.AddInt64(&received, int64(v))
				if atomic.AddInt64(&count, 1) == total {
					q.Close()
				}
			}
		}()
	}

	wg.Wait()
	done := make(chan struct{})
	go func() {
		cwg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d", atomic.LoadInt64(&count), total)
	}
	if sent != received {
		t.Errorf("checksum mismatch: sent %d, received %d", sent, received)
	}
}
