package booking_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"classbook/internal/adapters/storage"
	store "classbook/internal/adapters/storage/booking"
	domain "classbook/internal/domain/booking"
)

var t0 = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, q := range []string{
		`INSERT INTO location (id, name) VALUES ('loc-1', 'Central')`,
		`INSERT INTO class_instance (id, location_id, title, start_at, end_at, capacity, status, created_at, updated_at)
		 VALUES ('ci-1', 'loc-1', 'BJJ', '2026-03-03T18:00:00.000000000Z', '2026-03-03T19:00:00.000000000Z', 10, 'scheduled', '', '')`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

// TestSQLiteStore_OneActivePerPair verifies a second active booking maps to ErrAlreadyBooked.
func TestSQLiteStore_OneActivePerPair(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(openTestDB(t))

	first := domain.New("b-1", "m-1", "ci-1", domain.SourceDirect, t0)
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, domain.New("b-2", "m-1", "ci-1", domain.SourceDirect, t0)); !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Fatalf("duplicate Insert err = %v, want ErrAlreadyBooked", err)
	}

	if err := first.Cancel(domain.ReasonMemberCanceled, true, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Insert(ctx, domain.New("b-3", "m-1", "ci-1", domain.SourceWaitlist, t0.Add(2*time.Minute))); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}

	got, err := s.GetByID(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusCanceled || !got.LateCancel || got.CancelReason != domain.ReasonMemberCanceled {
		t.Errorf("canceled booking = %+v", got)
	}
	if !got.CanceledAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("CanceledAt = %v, want %v", got.CanceledAt, t0.Add(time.Minute))
	}
}

// TestSQLiteStore_Queries verifies active lookup and listing.
func TestSQLiteStore_Queries(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(openTestDB(t))
	for i, member := range []string{"m-1", "m-2", "m-3"} {
		if err := s.Insert(ctx, domain.New("b-"+member, member, "ci-1", domain.SourceDirect, t0.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	b, _ := s.GetByID(ctx, "b-m-2")
	if err := b.MarkAttendance(domain.AttendanceCheckedIn, t0); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	if err := s.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := s.GetActive(ctx, "m-2", "ci-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetActive(attended) err = %v, want sql.ErrNoRows", err)
	}
	active, err := s.GetActive(ctx, "m-3", "ci-1")
	if err != nil || active.ID != "b-m-3" {
		t.Errorf("GetActive(m-3) = %+v, %v", active, err)
	}

	all, err := s.ListByInstance(ctx, "ci-1")
	if err != nil || len(all) != 3 || all[0].ID != "b-m-1" {
		t.Errorf("ListByInstance = %d, %v", len(all), err)
	}
	booked, err := s.ListActiveByInstance(ctx, "ci-1")
	if err != nil || len(booked) != 2 {
		t.Errorf("ListActiveByInstance = %d, %v; want 2", len(booked), err)
	}
}
