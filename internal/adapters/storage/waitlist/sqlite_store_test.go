package waitlist_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"classbook/internal/adapters/storage"
	store "classbook/internal/adapters/storage/waitlist"
	domain "classbook/internal/domain/waitlist"
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
		 VALUES ('ci-1', 'loc-1', 'BJJ', '2026-03-03T18:00:00.000000000Z', '2026-03-03T19:00:00.000000000Z', 1, 'scheduled', '', '')`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

// TestSQLiteStore_WaitingUniqueness verifies one waiting entry per member and instance.
func TestSQLiteStore_WaitingUniqueness(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(openTestDB(t))

	first := domain.New("w-1", "m-1", "ci-1", 1, t0)
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, domain.New("w-2", "m-1", "ci-1", 2, t0)); !errors.Is(err, domain.ErrAlreadyWaitlisted) {
		t.Fatalf("duplicate Insert err = %v, want ErrAlreadyWaitlisted", err)
	}

	if err := first.Remove(domain.ReasonMemberLeft, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Insert(ctx, domain.New("w-3", "m-1", "ci-1", 3, t0.Add(2*time.Minute))); err != nil {
		t.Fatalf("rejoin after leaving: %v", err)
	}

	got, err := s.GetWaiting(ctx, "m-1", "ci-1")
	if err != nil || got.ID != "w-3" || got.Position != 3 {
		t.Errorf("GetWaiting = %+v, %v; want w-3 at position 3", got, err)
	}
	left, _ := s.GetByID(ctx, "w-1")
	if left.Status != domain.StatusRemoved || left.RemovedReason != domain.ReasonMemberLeft {
		t.Errorf("left entry = %+v", left)
	}
}

// TestSQLiteStore_ListWaiting verifies position ordering and status filtering.
func TestSQLiteStore_ListWaiting(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(openTestDB(t))
	for _, e := range []domain.Entry{
		domain.New("w-c", "m-3", "ci-1", 3, t0),
		domain.New("w-a", "m-1", "ci-1", 1, t0),
		domain.New("w-b", "m-2", "ci-1", 2, t0),
	} {
		if err := s.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	b, _ := s.GetByID(ctx, "w-b")
	if err := b.Promote("bk-1", t0); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if err := s.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}

	waiting, err := s.ListWaiting(ctx, "ci-1")
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(waiting) != 2 || waiting[0].ID != "w-a" || waiting[1].ID != "w-c" {
		t.Errorf("ListWaiting = %+v, want w-a then w-c", waiting)
	}
	all, err := s.ListByInstance(ctx, "ci-1")
	if err != nil || len(all) != 3 || all[1].BookingID != "bk-1" {
		t.Errorf("ListByInstance = %+v, %v", all, err)
	}
}

// TestSQLiteStore_PositionUnique verifies a position can never be handed out twice.
func TestSQLiteStore_PositionUnique(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := store.NewSQLiteStore(db)
	if err := s.Insert(ctx, domain.New("w-1", "m-1", "ci-1", 1, t0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := db.Exec(`INSERT INTO waitlist_entry (id, member_id, class_instance_id, position, status, joined_at)
		VALUES ('w-2', 'm-2', 'ci-1', 1, 'waiting', '')`)
	if !storage.IsUniqueViolation(err) {
		t.Errorf("duplicate position err = %v, want unique violation", err)
	}
}
