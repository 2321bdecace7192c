package fn

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestResult(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result misreported")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("Unwrap = (%d, %v)", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result misreported")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr = %d", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Fatal("nil error should be Ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Fatal("non-nil error should be Err")
	}
}

func TestCollect(t *testing.T) {
	ok := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)})
	vals, err := ok.Unwrap()
	if err != nil || len(vals) != 3 || vals[1] != 2 {
		t.Fatalf("Collect = (%v, %v)", vals, err)
	}

	bad := Collect([]Result[int]{Ok(1), Err[int](errors.New("mid")), Ok(3)})
	if bad.IsOk() {
		t.Fatal("Collect should propagate the first error")
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	out := ParMap(items, 8, func(v int) int {
		if v%7 == 0 {
			time.Sleep(time.Millisecond) // stagger completion order
		}
		return v * 2
	})
	for i, v := range out {
		if v != i*2 {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
}

func TestParMapBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	ParMap(make([]int, 50), 4, func(int) int {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return 0
	})
	if peak.Load() > 4 {
		t.Fatalf("peak concurrency %d exceeds worker bound", peak.Load())
	}
}

func TestParMapResultKeepsPerItemErrors(t *testing.T) {
	out := ParMapResult([]int{1, 2, 3}, 2, func(v int) Result[int] {
		if v == 2 {
			return Errf[int]("bad %d", v)
		}
		return Ok(v)
	})
	if out[0].IsErr() || out[2].IsErr() {
		t.Fatal("good items should stay Ok")
	}
	if out[1].IsOk() {
		t.Fatal("failed item should stay Err in its slot")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Errf[string]("attempt %d", attempts)
		}
		return Ok("done")
	})
	if v, _ := r.Unwrap(); v != "done" || attempts != 3 {
		t.Fatalf("got %q after %d attempts", v, attempts)
	}
}

func TestRetryExhausts(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	if r.IsOk() {
		t.Fatal("should fail after exhausting attempts")
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour}, func(context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestThenShortCircuits(t *testing.T) {
	first := func(_ context.Context, in int) Result[int] {
		return Err[int](errors.New("first failed"))
	}
	called := false
	second := func(_ context.Context, in int) Result[string] {
		called = true
		return Ok(fmt.Sprint(in))
	}
	r := Then(first, second)(context.Background(), 1)
	if r.IsOk() || called {
		t.Fatal("second stage must not run after first fails")
	}
}

func TestBatchStage(t *testing.T) {
	double := MapStage(func(v int) int { return v * 2 })
	r := BatchStage(3, double)(context.Background(), []int{1, 2, 3})
	vals, err := r.Unwrap()
	if err != nil || len(vals) != 3 || vals[2] != 6 {
		t.Fatalf("BatchStage = (%v, %v)", vals, err)
	}
}

func TestSliceCombinators(t *testing.T) {
	doubled := Map([]int{1, 2}, func(v int) int { return v * 2 })
	if doubled[1] != 4 {
		t.Fatal("Map")
	}
	odd := Filter([]int{1, 2, 3}, func(v int) bool { return v%2 == 1 })
	if len(odd) != 2 {
		t.Fatal("Filter")
	}
	uniq := Unique([]string{"a", "b", "a"})
	if len(uniq) != 2 || uniq[0] != "a" {
		t.Fatal("Unique")
	}
	type kv struct{ k, v string }
	uniqBy := UniqueBy([]kv{{"x", "1"}, {"x", "2"}, {"y", "3"}}, func(p kv) string { return p.k })
	if len(uniqBy) != 2 || uniqBy[0].v != "1" {
		t.Fatal("UniqueBy should keep first occurrence")
	}
}
