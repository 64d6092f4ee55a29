package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/replicad/internal/history"
)

func testEvent() history.Event {
	return history.Event{
		Type:       history.EventCreated,
		OccurredAt: time.Now().UTC(),
		ReplicaID:  "ec2a2cb2f1d3",
		Mode:       "replica",
		Status:     "pending",
		PID:        0,
	}
}

func TestSinkInMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	if err := sink.Send(ctx, testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	failed := testEvent()
	failed.Type = history.EventFailed
	failed.Status = "failed"
	failed.Error = "workload process died unexpectedly"
	if err := sink.Send(ctx, failed); err != nil {
		t.Fatalf("Send failed event: %v", err)
	}

	var count int
	if err := sink.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replica_history").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	var errCol *string
	row := sink.db.QueryRowContext(ctx, "SELECT error FROM replica_history WHERE event = 'created'")
	if err := row.Scan(&errCol); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if errCol != nil {
		t.Errorf("created event error column = %v, want NULL", *errCol)
	}
}

func TestSinkFileAndPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("New with prefix: %v", err)
	}
	if err := sink.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSinkEmptyDSN(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New accepted empty DSN")
	}
}
