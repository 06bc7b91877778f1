package storage

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"
)

// openTestDB creates a migrated in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'goose_db_version' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestMigrate_CreatesTables verifies the full schema is applied.
func TestMigrate_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	got := getTableNames(t, db)
	want := []string{"access_state", "audit_event", "booking", "capacity_limit", "class_instance", "location", "member", "membership", "outbox", "schedule", "waitlist_entry"}
	if len(got) != len(want) {
		t.Fatalf("tables = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("table[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestMigrate_Idempotent verifies running migrations twice is a no-op.
func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestSchema_OneActiveBookingPerPair verifies the partial unique index.
func TestSchema_OneActiveBookingPerPair(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())
	mustExec(t, db, `INSERT INTO location (id, name) VALUES ('loc', 'Central')`)
	mustExec(t, db, `INSERT INTO class_instance (id, location_id, title, start_at, end_at, capacity, status, created_at, updated_at)
		VALUES ('ci', 'loc', 'Spin', ?, ?, 5, 'scheduled', ?, ?)`, now, now, now, now)
	mustExec(t, db, `INSERT INTO booking (id, member_id, class_instance_id, status, created_at) VALUES ('b1', 'm', 'ci', 'canceled', ?)`, now)
	mustExec(t, db, `INSERT INTO booking (id, member_id, class_instance_id, status, created_at) VALUES ('b2', 'm', 'ci', 'booked', ?)`, now)

	_, err := db.Exec(`INSERT INTO booking (id, member_id, class_instance_id, status, created_at) VALUES ('b3', 'm', 'ci', 'booked', ?)`, now)
	if !IsUniqueViolation(err) {
		t.Errorf("second active booking error = %v, want UNIQUE violation", err)
	}
}

// TestSchema_BookedCountCannotExceedCapacity verifies the seat check constraint.
func TestSchema_BookedCountCannotExceedCapacity(t *testing.T) {
	db := openTestDB(t)
	now := FormatTime(time.Now())
	mustExec(t, db, `INSERT INTO location (id, name) VALUES ('loc', 'Central')`)
	mustExec(t, db, `INSERT INTO class_instance (id, location_id, title, start_at, end_at, capacity, booked_count, status, created_at, updated_at)
		VALUES ('ci', 'loc', 'Spin', ?, ?, 1, 1, 'scheduled', ?, ?)`, now, now, now, now)
	if _, err := db.Exec(`UPDATE class_instance SET booked_count = 2 WHERE id = 'ci'`); err == nil {
		t.Error("booked_count above capacity was accepted, want CHECK failure")
	}
}

// TestTimeRoundTrip verifies fixed-width timestamps sort chronologically.
func TestTimeRoundTrip(t *testing.T) {
	a := time.Date(2026, 5, 4, 18, 0, 5, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	if FormatTime(a) >= FormatTime(b) {
		t.Errorf("FormatTime(%v) >= FormatTime(%v), want lexical order", a, b)
	}
	if !ParseTime(FormatTime(b)).Equal(b) {
		t.Errorf("ParseTime(FormatTime(b)) = %v, want %v", ParseTime(FormatTime(b)), b)
	}
	if !ParseTime("").IsZero() || FormatTime(time.Time{}) != "" {
		t.Error("zero time should map to empty string and back")
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
