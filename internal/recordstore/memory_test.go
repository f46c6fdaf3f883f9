package recordstore

import (
	"context"
	"testing"
)

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rows := []Row{
		{"id": "s1", "patient_id": "pat-1", "disease_level": "mild"},
		{"id": "s2", "patient_id": "pat-1", "disease_level": "severe"},
		{"id": "s3", "patient_id": "pat-2", "disease_level": "mild"},
	}
	for _, row := range rows {
		if _, err := store.Insert(ctx, TableEyeScans, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.Query(ctx, TableEyeScans, Filter{"patient_id": "pat-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}

	// Multi-column filters are conjunctive.
	got, err = store.Query(ctx, TableEyeScans, Filter{"patient_id": "pat-1", "disease_level": "mild"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "s1" {
		t.Fatalf("rows = %+v, want only s1", got)
	}

	// An empty filter matches everything.
	count, err := store.Count(ctx, TableEyeScans, Filter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Insert(ctx, TableAppointments, Row{"id": "a1", "status": "pending"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	affected, err := store.Update(ctx, TableAppointments, Filter{"id": "a1"}, Row{"status": "confirmed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	rows, _ := store.Query(ctx, TableAppointments, Filter{"id": "a1"})
	if len(rows) != 1 || rows[0]["status"] != "confirmed" {
		t.Fatalf("rows = %+v", rows)
	}

	affected, err = store.Update(ctx, TableAppointments, Filter{"id": "missing"}, Row{"status": "cancelled"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected = %d, want 0 for no match", affected)
	}
}

func TestMemoryStoreRejectsUnknownTable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Query(ctx, "users; drop table users", nil); err == nil {
		t.Fatal("unknown table must be rejected")
	}
	if _, err := store.Insert(ctx, "audit_log", Row{"id": "x"}); err == nil {
		t.Fatal("unknown table must be rejected")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := Row{"id": "p1", "full_name": "Pat"}
	if _, err := store.Insert(ctx, TableProfiles, original); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Mutating the caller's row or a queried row must not leak into storage.
	original["full_name"] = "changed after insert"
	rows, _ := store.Query(ctx, TableProfiles, Filter{"id": "p1"})
	if rows[0]["full_name"] != "Pat" {
		t.Fatalf("stored row mutated through caller's reference: %+v", rows[0])
	}
	rows[0]["full_name"] = "changed after query"
	rows, _ = store.Query(ctx, TableProfiles, Filter{"id": "p1"})
	if rows[0]["full_name"] != "Pat" {
		t.Fatalf("stored row mutated through query result: %+v", rows[0])
	}
}
