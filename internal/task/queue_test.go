package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	slots := []int{10, 20, 30}
	for _, n := range slots {
		tk := &Task{Kind: KindChangePreset}
		tk.Nums[0] = n
		q.Add(tk)
	}
	assert.Equal(t, 3, q.Len())
	for _, n := range slots {
		tk := q.TryPop()
		require.NotNil(t, tk)
		assert.Equal(t, n, tk.Nums[0])
	}
	assert.Nil(t, q.TryPop())
	assert.True(t, q.IsEmpty())
}

func TestQueueBlockingPop(t *testing.T) {
	q := NewQueue()
	got := make(chan *Task, 1)
	go func() {
		tk, ok := q.Pop()
		if !ok {
			tk = nil
		}
		got <- tk
	}()
	time.Sleep(10 * time.Millisecond)
	q.Add(&Task{Kind: KindInit})
	select {
	case tk := <-got:
		require.NotNil(t, tk)
		assert.Equal(t, KindInit, tk.Kind)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers, each = 8, 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Add(&Task{Kind: KindInterrupt})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, producers*each, q.Len())
}

func TestQueueDeinitUnblocksPop(t *testing.T) {
	q := NewQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Deinit()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Deinit")
	}
}

func TestQueueDeinitDrains(t *testing.T) {
	q := NewQueue()
	q.Add(&Task{Kind: KindInit})
	q.Add(&Task{Kind: KindQuit})
	q.Deinit()
	assert.Zero(t, q.Len())
	// Adds after shutdown are dropped.
	q.Add(&Task{Kind: KindInit})
	assert.Zero(t, q.Len())
}
