package capacity_test

import (
	"context"
	"testing"

	"classbook/internal/adapters/storage"
	store "classbook/internal/adapters/storage/capacity"
	domain "classbook/internal/domain/capacity"
)

func intp(n int) *int { return &n }

// TestSQLiteStore_Limits verifies nullable limits round-trip and missing limits are nil.
func TestSQLiteStore_Limits(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := store.NewSQLiteStore(db)

	if l, err := s.GetLimit(ctx, "loc-1", ""); err != nil || l != nil {
		t.Fatalf("GetLimit(unset) = %+v, %v; want nil", l, err)
	}

	if err := s.SaveLimit(ctx, domain.Limit{LocationID: "loc-1", MaxActiveMembers: intp(100), HardLimitEnforced: true}); err != nil {
		t.Fatalf("SaveLimit: %v", err)
	}
	if err := s.SaveLimit(ctx, domain.Limit{LocationID: "loc-1", PlanID: "plus", SoftLimitThreshold: intp(5)}); err != nil {
		t.Fatalf("SaveLimit: %v", err)
	}

	loc, err := s.GetLimit(ctx, "loc-1", "")
	if err != nil {
		t.Fatalf("GetLimit: %v", err)
	}
	if loc.MaxActiveMembers == nil || *loc.MaxActiveMembers != 100 || loc.SoftLimitThreshold != nil || !loc.HardLimitEnforced {
		t.Errorf("location limit = %+v", loc)
	}
	plan, err := s.GetLimit(ctx, "loc-1", "plus")
	if err != nil {
		t.Fatalf("GetLimit: %v", err)
	}
	if plan.MaxActiveMembers != nil || plan.SoftLimitThreshold == nil || *plan.SoftLimitThreshold != 5 {
		t.Errorf("plan limit = %+v", plan)
	}

	for _, q := range []string{
		`INSERT INTO membership (id, member_id, plan_id, scope, home_location_id, status) VALUES ('a', 'm-1', 'plus', 'single_location', 'loc-1', 'active')`,
		`INSERT INTO membership (id, member_id, plan_id, scope, home_location_id, status) VALUES ('b', 'm-2', 'basic', 'single_location', 'loc-1', 'active')`,
		`INSERT INTO membership (id, member_id, plan_id, scope, home_location_id, status) VALUES ('c', 'm-3', 'plus', 'single_location', 'loc-1', 'ended')`,
		`INSERT INTO membership (id, member_id, plan_id, scope, home_location_id, status) VALUES ('d', 'm-4', 'plus', 'single_location', 'loc-2', 'active')`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if n, err := s.CountActiveMembers(ctx, "loc-1", ""); err != nil || n != 2 {
		t.Errorf("CountActiveMembers(location) = %d, %v; want 2", n, err)
	}
	if n, err := s.CountActiveMembers(ctx, "loc-1", "plus"); err != nil || n != 1 {
		t.Errorf("CountActiveMembers(plan) = %d, %v; want 1", n, err)
	}
}
