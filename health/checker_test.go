package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthy(t *testing.T) {
	result := Healthy("test message")

	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	if result.Message != "test message" {
		t.Errorf("Message = %v, want 'test message'", result.Message)
	}
	if result.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestDegraded(t *testing.T) {
	result := Degraded("half-open")
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", result.Status)
	}
	if result.Error != nil {
		t.Errorf("Error = %v, want nil", result.Error)
	}
}

func TestUnhealthy_WrapsCheckFailed(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
	}{
		{"nil", nil},
		{"cause", cause},
		{"already wrapped", ErrCheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Unhealthy("down", tt.err)
			if r.Status != StatusUnhealthy {
				t.Errorf("Status = %v, want StatusUnhealthy", r.Status)
			}
			if !errors.Is(r.Error, ErrCheckFailed) {
				t.Errorf("Error = %v, want ErrCheckFailed", r.Error)
			}
			if tt.err != nil && !errors.Is(r.Error, tt.err) {
				t.Errorf("Error = %v, want %v", r.Error, tt.err)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	if r := FromError("fine", nil); r.Status != StatusHealthy || r.Message != "fine" {
		t.Errorf("FromError(nil) = %+v", r)
	}
	boom := errors.New("boom")
	if r := FromError("fine", boom); r.Status != StatusUnhealthy || r.Message != "boom" {
		t.Errorf("FromError(boom) = %+v", r)
	}
}

func TestCheckerFunc(t *testing.T) {
	called := false
	c := NewCheckerFunc("ping", func(ctx context.Context) Result {
		called = true
		return Healthy("ok")
	})

	if c.Name() != "ping" {
		t.Errorf("Name() = %v, want ping", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check() status = %v", r.Status)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestResult_WithDetails(t *testing.T) {
	r := Healthy("ok").WithDetails(map[string]any{"entities": 3})
	if r.Details["entities"] != 3 {
		t.Errorf("Details = %v", r.Details)
	}
}
