package ledger

import (
	"context"
	"testing"
)

func TestRecordFailureIsIdempotentPerKind(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	if err := l.RecordFailure(ctx, "14-03-2025", "timeout", "request timed out"); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx, "14-03-2025", "timeout", "timed out again"); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx, "14-03-2025", "server_xml", "normas errors"); err != nil {
		t.Fatal(err)
	}

	open, err := l.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("got %d open entries, want 2 (one per kind): %+v", len(open), open)
	}
	for _, e := range open {
		if e.Kind == "timeout" && e.Detail != "request timed out" {
			t.Errorf("duplicate overwrote original detail: %+v", e)
		}
	}
}

func TestReconcileMovesEntriesToCorrectedLog(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	if err := l.RecordFailure(ctx, "14-03-2025", "timeout", "request timed out"); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx, "14-03-2025", "server_xml", "normas errors"); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx, "123456", "pdf", "unreadable pdf"); err != nil {
		t.Fatal(err)
	}

	resolved, err := l.Reconcile(ctx, "14-03-2025")
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 2 {
		t.Fatalf("resolved %d entries, want 2: %+v", len(resolved), resolved)
	}

	open, err := l.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].Identifier != "123456" {
		t.Fatalf("open = %+v, want only the norm entry", open)
	}

	corrected, err := l.CorrectedLog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(corrected) != 2 {
		t.Fatalf("corrected = %+v, want 2 entries", corrected)
	}
	for _, c := range corrected {
		if c.Identifier != "14-03-2025" {
			t.Errorf("unexpected corrected identifier %q", c.Identifier)
		}
		if c.FirstSeen.IsZero() || c.ResolvedAt.Before(c.FirstSeen) {
			t.Errorf("corrected entry lost its timestamps: %+v", c)
		}
	}
}

func TestReconcileUnknownIdentifierIsNoop(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	resolved, err := l.Reconcile(ctx, "01-01-2020")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != nil {
		t.Errorf("resolved = %+v, want nil", resolved)
	}
}

func TestFailureCanRecurAfterReconciliation(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	if err := l.RecordFailure(ctx, "777", "pdf", "first failure"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reconcile(ctx, "777"); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx, "777", "pdf", "failed again later"); err != nil {
		t.Fatal(err)
	}

	open, _ := l.Open(ctx)
	if len(open) != 1 || open[0].Detail != "failed again later" {
		t.Fatalf("open = %+v, want the fresh entry", open)
	}
	corrected, _ := l.CorrectedLog(ctx)
	if len(corrected) != 1 {
		t.Fatalf("corrected = %+v, want the first entry only", corrected)
	}
}
