package schedule

import (
	"context"
	"testing"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

type stubStarter struct{}

func (stubStarter) Start(ctx context.Context, req domain.StartRunRequest) (string, error) {
	return "run_test", nil
}

func TestAddValidation(t *testing.T) {
	s := New(stubStarter{})
	req := domain.StartRunRequest{SessionID: "s1", Query: "go"}

	if err := s.Add("", "@hourly", req); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := s.Add("search", "not a cron expr", req); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if err := s.Add("search", "@hourly", req); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("search", "@hourly", req); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestRemove(t *testing.T) {
	s := New(stubStarter{})
	req := domain.StartRunRequest{SessionID: "s1", Query: "go"}

	if err := s.Remove("missing"); err == nil {
		t.Fatal("expected error for unknown schedule")
	}
	if err := s.Add("search", "0 * * * *", req); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Remove("search"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// Removed name can be reused.
	if err := s.Add("search", "0 * * * *", req); err != nil {
		t.Fatalf("re-Add failed: %v", err)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s := New(stubStarter{})
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
