package journal

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/earshot/internal/trace"
)

func TestBeginSession_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.BeginSession(ctx, Session{Token: "s1", Name: "demo", Banks: []string{"Master.bank"}}); err != nil {
		t.Fatalf("BeginSession() failed: %v", err)
	}
	if err := s.SetPhase(ctx, "s1", "ready"); err != nil {
		t.Fatalf("SetPhase() failed: %v", err)
	}
	// Re-registering keeps the phase.
	if err := s.BeginSession(ctx, Session{Token: "s1", Name: "renamed", Banks: []string{"Master.bank", "SFX.bank"}}); err != nil {
		t.Fatalf("second BeginSession() failed: %v", err)
	}

	got, err := s.ReadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", got.Name)
	}
	if !reflect.DeepEqual(got.Banks, []string{"Master.bank", "SFX.bank"}) {
		t.Errorf("Banks = %v", got.Banks)
	}
	if got.Phase != "ready" {
		t.Errorf("Phase = %q, want ready", got.Phase)
	}
}

func TestSetPhase_UnknownSession(t *testing.T) {
	s := createTestStore(t)
	if err := s.SetPhase(context.Background(), "nope", "ready"); err == nil {
		t.Error("SetPhase() on unknown session should fail")
	}
}

func TestWriteCall_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	call := trace.Call{
		Seq:     7,
		Session: "s1",
		Op:      "instance.set_3d_attributes",
		Target:  "event:/Weapons/Explosion#1",
		Args:    map[string]any{"x": 1.5, "mode": "world"},
		Result:  "OK",
	}
	if err := s.WriteCall(ctx, call); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	calls, err := s.ReadCalls(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(calls))
	}
	if !reflect.DeepEqual(calls[0], call) {
		t.Errorf("ReadCalls()[0] = %+v, want %+v", calls[0], call)
	}
}

func TestWriteCall_CreatesBareSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteCall(ctx, trace.Call{Seq: 1, Session: "anon", Op: "system.update", Result: "OK"}); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	sess, err := s.ReadSession(ctx, "anon")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if sess.Phase != "uninitialized" {
		t.Errorf("Phase = %q, want uninitialized", sess.Phase)
	}
	if len(sess.Banks) != 0 {
		t.Errorf("Banks = %v, want empty", sess.Banks)
	}
	if sess.Calls != 1 {
		t.Errorf("Calls = %d, want 1", sess.Calls)
	}
}

func TestWriteCall_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := trace.Call{Seq: 1, Session: "s1", Op: "system.update", Result: "OK"}
	if err := s.WriteCall(ctx, first); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}
	second := first
	second.Op = "system.release"
	if err := s.WriteCall(ctx, second); err != nil {
		t.Fatalf("duplicate WriteCall() failed: %v", err)
	}

	calls, err := s.ReadCalls(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(calls) != 1 || calls[0].Op != "system.update" {
		t.Errorf("calls = %+v, want only the first write", calls)
	}
}

func TestRecord_KeepsFirstError(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.Record(trace.Call{Seq: 1, Session: "s1", Op: "system.update", Result: "OK"})
	if err := s.Err(); err != nil {
		t.Fatalf("Err() after good record = %v", err)
	}

	s.Close()
	s.Record(trace.Call{Seq: 2, Session: "s1", Op: "system.update", Result: "OK"})
	first := s.Err()
	if first == nil {
		t.Fatal("Err() = nil after writing to a closed store")
	}
	s.Record(trace.Call{Seq: 3, Session: "s1", Op: "system.update", Result: "OK"})
	if !errors.Is(s.Err(), first) {
		t.Errorf("Err() changed after later failure")
	}
}

func TestRecord_ImplementsRecorder(t *testing.T) {
	var _ trace.Recorder = (*Store)(nil)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSession() error = %v, want sql.ErrNoRows", err)
	}
}
