package worker_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/worker"
)

func TestProcessAll_PreservesOrder(t *testing.T) {
	t.Parallel()

	var seen []string
	fn := func(_ context.Context, in string) (string, error) {
		seen = append(seen, in)
		return in + "!", nil
	}

	in := []string{"a", "b", "c", "d"}
	out, err := worker.ProcessAll(context.Background(), in, fn, worker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(seen, in) {
		t.Fatalf("processor saw %v, want %v", seen, in)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d outputs, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Input != in[i] || out[i].Output != in[i]+"!" {
			t.Fatalf("unexpected out[%d]: %#v", i, out[i])
		}
	}
}

func TestProcessAll_DoesNotRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	fn := func(_ context.Context, _ string) (string, error) {
		calls++
		return "", errors.New("permanent")
	}

	out, err := worker.ProcessAll(context.Background(), []string{"acme"}, fn, worker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Err == nil || out[0].Err.Error() != "permanent" {
		t.Fatalf("unexpected output: %#v", out)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestProcessAll_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, in string) (string, error) {
		if in == "B" {
			return "", errors.New("boom")
		}
		return "ok:" + in, nil
	}

	out, err := worker.ProcessAll(context.Background(), []string{"A", "B", "C"}, fn, worker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(out))
	}
	if out[0].Err != nil || out[0].Output != "ok:A" {
		t.Fatalf("unexpected out[0]: %#v", out[0])
	}
	if out[1].Err == nil || out[1].Err.Error() != "boom" {
		t.Fatalf("unexpected out[1]: %#v", out[1])
	}
	if out[2].Err != nil || out[2].Output != "ok:C" {
		t.Fatalf("unexpected out[2]: %#v", out[2])
	}
}

func TestProcessAll_AppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	fn := func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	out, err := worker.ProcessAll(context.Background(), []string{"slow", "slower"}, fn, worker.Options{
		RequestTimeout: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range out {
		if !errors.Is(r.Err, context.DeadlineExceeded) {
			t.Fatalf("out[%d]: expected deadline exceeded, got %v", i, r.Err)
		}
	}
}

func TestProcessAll_StopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(_ context.Context, in string) (string, error) {
		calls++
		if in == "first" {
			cancel()
		}
		return in, nil
	}

	out, err := worker.ProcessAll(ctx, []string{"first", "second"}, fn, worker.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil output, got %#v", out)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestProcessAllWithCallback_SeesEveryResult(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	}

	var got []int
	_, err := worker.ProcessAllWithCallback(context.Background(), []int{1, 2, 3}, fn, func(r worker.Result[int, int]) error {
		got = append(got, r.Output)
		return nil
	}, worker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Fatalf("callback saw %v", got)
	}
}

func TestProcessAllWithCallback_CallbackErrorStops(t *testing.T) {
	t.Parallel()

	calls := 0
	fn := func(_ context.Context, in int) (int, error) {
		calls++
		return in, nil
	}

	_, err := worker.ProcessAllWithCallback(context.Background(), []int{1, 2, 3}, fn, func(worker.Result[int, int]) error {
		return errors.New("sink closed")
	}, worker.Options{})
	if err == nil || err.Error() != "sink closed" {
		t.Fatalf("expected sink closed error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestProcessAll_RateLimitPacesCalls(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, in int) (int, error) {
		return in, nil
	}

	start := time.Now()
	_, err := worker.ProcessAll(context.Background(), []int{1, 2, 3}, fn, worker.Options{RateLimitRPS: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Burst of 1 at 50 rps: the 2nd and 3rd calls each wait ~20ms.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected paced calls, finished in %s", elapsed)
	}
}

func TestProcessAll_CancelDuringLastItem(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn := func(_ context.Context, in int) (int, error) {
		if in == 2 {
			cancel()
		}
		// Failures are folded into the output, as the search stage does.
		return in, nil
	}

	out, err := worker.ProcessAll(ctx, []int{1, 2}, fn, worker.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no results, got %#v", out)
	}
}
