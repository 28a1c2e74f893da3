package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 5*time.Second {
		t.Errorf("Default timeout = %v, want 5s", agg.config.Timeout)
	}

	agg = NewAggregator(AggregatorConfig{Timeout: -1, Concurrency: 2})
	if agg.config.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", agg.config.Timeout)
	}
	if agg.config.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", agg.config.Concurrency)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("store", Healthy("ok")))
	agg.Register(fixed("drafts", Healthy("ok")))
	agg.Register(fixed("store", Degraded("replaced")))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "store" || names[1] != "drafts" {
		t.Fatalf("CheckerNames() = %v, want [store drafts]", names)
	}

	r, err := agg.Check(context.Background(), "store")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if r.Message != "replaced" {
		t.Errorf("Message = %q, want replaced", r.Message)
	}

	agg.Unregister("store")
	agg.Unregister("missing")
	if names := agg.CheckerNames(); len(names) != 1 || names[0] != "drafts" {
		t.Errorf("CheckerNames() = %v, want [drafts]", names)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	_, err := NewAggregator().Check(context.Background(), "nope")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Concurrency: 1})
	agg.Register(fixed("a", Healthy("ok")))
	agg.Register(fixed("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for name, r := range results {
		if r.Timestamp.IsZero() {
			t.Errorf("%s: zero timestamp", name)
		}
	}
	if got := agg.OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus = %v, want degraded", got)
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	agg := NewAggregator()
	results := agg.CheckAll(context.Background())
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if got := agg.OverallStatus(results); got != StatusHealthy {
		t.Errorf("OverallStatus = %v, want healthy", got)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	var finished atomic.Bool
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("hang", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return Healthy("late")
	}))

	results := agg.CheckAll(context.Background())
	r := results["hang"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", r)
	}
	if finished.Load() {
		t.Error("CheckAll waited for the hung checker")
	}
}

func TestOverallStatus(t *testing.T) {
	agg := NewAggregator()
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"one unhealthy", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus = %v, want %v", got, tt.want)
			}
		})
	}
}
