package audio

import (
	"testing"
	"time"
)

func block(seq uint64) FrameBlock {
	return FrameBlock{Seq: seq, Time: time.Now(), Samples: []int16{int16(seq)}}
}

func TestFrameBuffer_OrderedDelivery(t *testing.T) {
	buf := NewFrameBuffer(8)
	cursor := buf.Subscribe()

	for seq := uint64(1); seq <= 5; seq++ {
		buf.Push(block(seq))
	}

	stop := make(chan struct{})
	for seq := uint64(1); seq <= 5; seq++ {
		got, ok := cursor.Next(stop)
		if !ok {
			t.Fatalf("Expected block %d, got none", seq)
		}
		if got.Seq != seq {
			t.Errorf("Expected seq %d, got %d", seq, got.Seq)
		}
	}

	if buf.Overruns() != 0 {
		t.Errorf("Expected no overruns, got %d", buf.Overruns())
	}
}

func TestFrameBuffer_EvictsOldestOnOverrun(t *testing.T) {
	buf := NewFrameBuffer(4)
	cursor := buf.Subscribe()

	// Push 10 blocks into a 4-slot ring without consuming.
	for seq := uint64(1); seq <= 10; seq++ {
		buf.Push(block(seq))
	}

	stop := make(chan struct{})
	got, ok := cursor.Next(stop)
	if !ok {
		t.Fatal("Expected a block after overrun")
	}
	// Blocks 1-6 were evicted; the oldest survivor is 7.
	if got.Seq != 7 {
		t.Errorf("Expected oldest surviving seq 7, got %d", got.Seq)
	}
	if buf.Overruns() != 6 {
		t.Errorf("Expected 6 overruns, got %d", buf.Overruns())
	}
}

func TestFrameBuffer_IndependentConsumers(t *testing.T) {
	buf := NewFrameBuffer(8)
	first := buf.Subscribe()
	second := buf.Subscribe()

	buf.Push(block(1))
	buf.Push(block(2))

	stop := make(chan struct{})
	if got, _ := first.Next(stop); got.Seq != 1 {
		t.Errorf("First consumer expected seq 1, got %d", got.Seq)
	}
	if got, _ := first.Next(stop); got.Seq != 2 {
		t.Errorf("First consumer expected seq 2, got %d", got.Seq)
	}

	// The second consumer's cursor is unaffected by the first's reads.
	if got, _ := second.Next(stop); got.Seq != 1 {
		t.Errorf("Second consumer expected seq 1, got %d", got.Seq)
	}
}

func TestFrameBuffer_NextHonorsStop(t *testing.T) {
	buf := NewFrameBuffer(4)
	cursor := buf.Subscribe()

	stop := make(chan struct{})
	done := make(chan bool)
	go func() {
		_, ok := cursor.Next(stop)
		done <- ok
	}()

	close(stop)
	select {
	case ok := <-done:
		if ok {
			t.Error("Expected Next to report no block on stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after stop")
	}
}

func TestFrameBuffer_CloseWakesConsumers(t *testing.T) {
	buf := NewFrameBuffer(4)
	cursor := buf.Subscribe()

	stop := make(chan struct{})
	done := make(chan bool)
	go func() {
		_, ok := cursor.Next(stop)
		done <- ok
	}()

	buf.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("Expected Next to report no block after close")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after close")
	}

	// Pushes after close are dropped.
	buf.Push(block(1))
	if _, ok := cursor.Next(stop); ok {
		t.Error("Expected no blocks after close")
	}
}

func TestFrameBuffer_WakesBlockedConsumerOnPush(t *testing.T) {
	buf := NewFrameBuffer(4)
	cursor := buf.Subscribe()

	stop := make(chan struct{})
	got := make(chan FrameBlock)
	go func() {
		b, _ := cursor.Next(stop)
		got <- b
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Push(block(42))

	select {
	case b := <-got:
		if b.Seq != 42 {
			t.Errorf("Expected seq 42, got %d", b.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Consumer was not woken by push")
	}
}
