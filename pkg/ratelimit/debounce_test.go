package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testWait = 20 * time.Millisecond

type recorder struct {
	mu   sync.Mutex
	args []int
}

func (r *recorder) record(arg int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.args = append(r.args, arg)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.args...)
}

func TestDebouncer_BurstExecutesOnce(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(testWait, rec.record)

	for i := 1; i <= 10; i++ {
		d.Call(i)
	}

	time.Sleep(5 * testWait)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("executions = %d, want 1 (%v)", len(got), got)
	}
	if got[0] != 10 {
		t.Errorf("executed with %d, want last argument 10", got[0])
	}
}

func TestDebouncer_BurstWithinWindowExecutesOnce(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(4*testWait, rec.record)

	for i := 1; i <= 5; i++ {
		d.Call(i)
		time.Sleep(testWait)
	}

	time.Sleep(10 * testWait)

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("executions = %d, want 1 (%v)", len(got), got)
	}
}

func TestDebouncer_SpacedCallsExecuteEach(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(testWait, rec.record)

	for i := 1; i <= 3; i++ {
		d.Call(i)
		time.Sleep(5 * testWait)
	}

	got := rec.snapshot()
	if len(got) != 3 {
		t.Fatalf("executions = %d, want 3 (%v)", len(got), got)
	}
	for i, arg := range got {
		if arg != i+1 {
			t.Errorf("execution %d ran with %d, want %d", i, arg, i+1)
		}
	}
}

func TestDebouncer_WaitsForQuietPeriod(t *testing.T) {
	var executed atomic.Int32
	d := NewDebouncer(5*testWait, func(struct{}) { executed.Add(1) })

	d.Call(struct{}{})
	time.Sleep(testWait)

	if executed.Load() != 0 {
		t.Fatal("executed before the idle window elapsed")
	}
	if !d.Pending() {
		t.Error("Pending() = false, want true")
	}

	time.Sleep(10 * testWait)

	if executed.Load() != 1 {
		t.Errorf("executions = %d, want 1", executed.Load())
	}
	if d.Pending() {
		t.Error("Pending() = true after execution")
	}
}

func TestDebouncer_Stop(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(testWait, rec.record)

	if d.Stop() {
		t.Error("Stop() = true with nothing pending")
	}

	d.Call(1)
	if !d.Stop() {
		t.Error("Stop() = false with a pending call")
	}

	time.Sleep(5 * testWait)

	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("executions = %v, want none after Stop", got)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(time.Hour, rec.record)

	if d.Flush() {
		t.Error("Flush() = true with nothing pending")
	}

	d.Call(7)
	if !d.Flush() {
		t.Fatal("Flush() = false with a pending call")
	}

	got := rec.snapshot()
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("executions = %v, want [7]", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after Flush")
	}
}

func TestDebouncer_ConcurrentCalls(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(4*testWait, rec.record)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d.Call(n)
		}(i)
	}
	wg.Wait()

	time.Sleep(10 * testWait)

	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("executions = %d, want 1", len(got))
	}
}
