package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	session, err := store.GetOrCreateSession(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if session.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	// Second call returns the existing session untouched.
	again, err := store.GetOrCreateSession(ctx, "s1", "someone_else")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if again.UserID != "u1" {
		t.Fatalf("expected original user, got %s", again.UserID)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing session, got %+v", missing)
	}
}

func TestSQLiteStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetOrCreateSession(ctx, "s1", "u1"); err != nil {
		t.Fatalf("session setup failed: %v", err)
	}

	run := &domain.Run{RunID: "r1", SessionID: "s1", Query: "go backend", Status: domain.RunStatusRunning}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Status != domain.RunStatusRunning || got.EndedAt != nil {
		t.Fatalf("unexpected run: %+v", got)
	}

	if err := store.UpdateRunStatus(ctx, "r1", domain.RunStatusPaused); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}
	got, _ = store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusPaused {
		t.Fatalf("expected PAUSED, got %s", got.Status)
	}

	if err := store.UpdateRunCompleted(ctx, "r1", domain.RunStatusFailed, []byte(`{"code":"run_failed","message":"boom"}`)); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}
	got, _ = store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusFailed || got.EndedAt == nil || len(got.Error) == 0 {
		t.Fatalf("unexpected terminal run: %+v", got)
	}

	runs, err := store.ListRuns(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
}

func TestSQLiteStoreEventJournal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		ev := domain.AgentEvent{
			Type:    domain.EventTypeStepCompleted,
			Source:  "score",
			Message: "scored",
			Ts:      base + int64(i),
		}
		if err := store.AppendEvent(ctx, "r1", ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "r1", 0, 0, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Ts < events[i-1].Ts {
			t.Fatal("events out of order")
		}
		if events[i].Seq <= events[i-1].Seq {
			t.Fatal("event seq not increasing")
		}
	}

	// Paging: the cursor excludes everything up to and including it.
	last := events[2]
	page, err := store.GetEvents(ctx, "r1", last.Ts, last.Seq, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 events after cursor, got %d", len(page))
	}
}

func TestSQLiteStoreEventPagingSameMillisecond(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	// Three events landing in the same millisecond, then one later.
	ts := time.Now().UnixMilli()
	for _, msg := range []string{"a", "b", "c"} {
		ev := domain.AgentEvent{Type: domain.EventTypeStepCompleted, Source: "score", Message: msg, Ts: ts}
		if err := store.AppendEvent(ctx, "r1", ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}
	if err := store.AppendEvent(ctx, "r1", domain.AgentEvent{
		Type: domain.EventTypeRunDone, Source: "executor", Message: "d", Ts: ts + 1,
	}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	// Page of one: resuming from each returned cursor must walk all four
	// events with no loss inside the shared millisecond.
	var got []domain.Event
	var afterTs, afterSeq int64
	for {
		page, err := store.GetEvents(ctx, "r1", afterTs, afterSeq, 1)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		got = append(got, page...)
		afterTs = page[len(page)-1].Ts
		afterSeq = page[len(page)-1].Seq
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 events across pages, got %d", len(got))
	}
	var payload struct {
		Message string `json:"message"`
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if err := json.Unmarshal(got[i].Payload, &payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Message != want {
			t.Fatalf("expected %q at position %d, got %q", want, i, payload.Message)
		}
	}
}

func TestSQLiteStoreJobsAndApplications(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	job := &domain.Job{JobID: "j1", Title: "Backend Engineer", Company: "Acme", SalaryFloor: 140000}
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob failed: %v", err)
	}

	job.Title = "Senior Backend Engineer"
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob update failed: %v", err)
	}

	got, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Title != "Senior Backend Engineer" {
		t.Fatalf("upsert did not refresh: %+v", got)
	}

	jobs, err := store.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	app := &domain.Application{ApplicationID: "a1", RunID: "r1", JobID: "j1", Status: "SUBMITTED", Receipt: "a1"}
	if err := store.CreateApplication(ctx, app); err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}
	apps, err := store.ListApplications(ctx, "r1")
	if err != nil {
		t.Fatalf("ListApplications failed: %v", err)
	}
	if len(apps) != 1 || apps[0].JobID != "j1" {
		t.Fatalf("unexpected applications: %+v", apps)
	}
}

func TestSQLiteStoreNegotiations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now()
	n := &domain.Negotiation{
		NegotiationID: "n1",
		SessionID:     "s1",
		Status:        domain.NegotiationStatusActive,
		Phase:         domain.NegotiationPhaseOpening,
		MaxTurns:      10,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.CreateNegotiation(ctx, n); err != nil {
		t.Fatalf("CreateNegotiation failed: %v", err)
	}

	n.Turn = 3
	n.Phase = domain.NegotiationPhaseCounter
	n.History = append(n.History, domain.NegotiationTurn{Turn: 3, Phase: n.Phase, Inbound: "offer", Response: "counter", At: now})
	if err := store.UpdateNegotiation(ctx, n); err != nil {
		t.Fatalf("UpdateNegotiation failed: %v", err)
	}

	got, err := store.GetNegotiation(ctx, "n1")
	if err != nil {
		t.Fatalf("GetNegotiation failed: %v", err)
	}
	if got.Turn != 3 || got.Phase != domain.NegotiationPhaseCounter || len(got.History) != 1 {
		t.Fatalf("unexpected negotiation: %+v", got)
	}

	missing, err := store.GetNegotiation(ctx, "nope")
	if err != nil {
		t.Fatalf("GetNegotiation failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing negotiation, got %+v", missing)
	}
}
