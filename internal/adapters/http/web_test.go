package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/adapters/http/perf"
	"classbook/internal/adapters/storage"
	accessStore "classbook/internal/adapters/storage/access"
	auditStore "classbook/internal/adapters/storage/audit"
	bookingStore "classbook/internal/adapters/storage/booking"
	capacityStore "classbook/internal/adapters/storage/capacity"
	classInstanceStore "classbook/internal/adapters/storage/classinstance"
	memberStore "classbook/internal/adapters/storage/member"
	outboxStore "classbook/internal/adapters/storage/outbox"
	"classbook/internal/adapters/storage/uow"
	waitlistStore "classbook/internal/adapters/storage/waitlist"
	"classbook/internal/application/orchestrators"
	"classbook/internal/domain/access"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/capacity"
	memberDomain "classbook/internal/domain/member"
	"classbook/internal/domain/outbox"
)

var (
	testSecret = []byte("test-secret")
	testNow    = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	adminActor = actor.Actor{ID: "admin-1", Role: actor.RoleAdmin}
	staffActor = actor.Actor{ID: "staff-1", Role: actor.RoleStaff}
)

func memberActor(id string) actor.Actor {
	return actor.Actor{ID: id, Role: actor.RoleMember}
}

type stubExecutor struct{}

func (stubExecutor) Execute(context.Context, string) (string, error) { return "msg-1", nil }

type testServer struct {
	handler http.Handler
	stores  *Stores
	access  *accessStore.SQLiteStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := func() time.Time { return testNow }
	var seqMu sync.Mutex
	seq := 0
	genID := func() string {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	accesses := accessStore.NewSQLiteStore(db)
	outboxes := outboxStore.NewSQLiteStore(db)
	audits := auditStore.NewSQLiteStore(db)
	stores := &Stores{
		ClassStore:    classInstanceStore.NewSQLiteStore(db),
		BookingStore:  bookingStore.NewSQLiteStore(db),
		WaitlistStore: waitlistStore.NewSQLiteStore(db),
		AccessStore:   accesses,
		CapacityStore: capacityStore.NewSQLiteStore(db),
		MemberStore:   memberStore.NewSQLiteStore(db),
		OutboxStore:   outboxes,
		AuditStore:    audits,
	}
	processor := orchestrators.NewOutboxProcessor(outboxes, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: stubExecutor{},
	}).WithClock(now)

	handler := NewRouter(stores, Options{
		Engine: orchestrators.EngineDeps{
			Tx: uow.NewSQLRunner(db),
			Effects: &orchestrators.EffectDispatcher{
				Notifier: &orchestrators.OutboxNotifier{
					Store:    outboxes,
					Channels: []string{outbox.ActionTypeEmail},
					Now:      now,
				},
				Auditor: audits,
			},
			Now:        now,
			GenerateID: genID,
		},
		Outbox:    processor,
		Collector: perf.NewCollector(100),
		DB:        storage.NewTimedDB(db, nil, 0),
		JWTSecret: testSecret,
	})

	if err := accesses.SaveLocation(ctx, access.Location{ID: "loc-1", Name: "Central", Region: "north"}); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return &testServer{handler: handler, stores: stores, access: accesses}
}

// grantAccess gives memberID an active membership homed at loc-1.
func (s *testServer) grantAccess(t *testing.T, memberID string) {
	t.Helper()
	ctx := context.Background()
	m := access.Membership{
		ID: "ms-" + memberID, MemberID: memberID, PlanID: "unlimited",
		Scope: access.ScopeAllLocations, HomeLocationID: "loc-1", Status: access.MembershipActive,
	}
	if err := s.access.SaveMembership(ctx, m); err != nil {
		t.Fatalf("save membership: %v", err)
	}
	st := access.State{MemberID: memberID, LocationID: access.AnyLocation, Status: access.StateActive}
	if err := s.access.SaveState(ctx, st, testNow); err != nil {
		t.Fatalf("save state: %v", err)
	}
}

// do sends an authenticated JSON request. A zero actor sends no token.
func (s *testServer) do(t *testing.T, a actor.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.ID != "" {
		token, err := middleware.IssueToken(testSecret, a, time.Hour, time.Now())
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	var body errorBody
	decode(t, rec, &body)
	if body.Error != code {
		t.Fatalf("error = %q, want %q", body.Error, code)
	}
}

// createClass schedules a class at loc-1 two days out.
func (s *testServer) createClass(t *testing.T, capacity int) classResponse {
	t.Helper()
	start := testNow.Add(48 * time.Hour)
	rec := s.do(t, adminActor, http.MethodPost, "/api/classes", map[string]any{
		"location_id": "loc-1",
		"title":       "Fundamentals",
		"start_at":    start,
		"end_at":      start.Add(time.Hour),
		"capacity":    capacity,
	})
	expectStatus(t, rec, http.StatusCreated)
	var c classResponse
	decode(t, rec, &c)
	return c
}

// TestHealth verifies the unauthenticated health probe.
func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, actor.Actor{}, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
}

// TestAPI_RequiresToken verifies /api rejects anonymous requests.
func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, actor.Actor{}, http.MethodGet, "/api/locations/loc-1/classes", nil)
	expectError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

// TestBookingFlow walks book, full, waitlist, cancel and promotion over HTTP.
func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	s.grantAccess(t, "m2")
	class := s.createClass(t, 1)

	rec := s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil)
	expectStatus(t, rec, http.StatusCreated)
	var b bookingResponse
	decode(t, rec, &b)
	if b.MemberID != "m1" || b.Status != "booked" {
		t.Fatalf("booking = %+v", b)
	}

	rec = s.do(t, memberActor("m2"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil)
	expectError(t, rec, http.StatusConflict, "CLASS_FULL")

	rec = s.do(t, memberActor("m2"), http.MethodPost, "/api/classes/"+class.ID+"/waitlist", nil)
	expectStatus(t, rec, http.StatusCreated)
	var entry waitlistEntryResponse
	decode(t, rec, &entry)
	if entry.Position != 1 {
		t.Errorf("position = %d, want 1", entry.Position)
	}

	rec = s.do(t, memberActor("m2"), http.MethodPost, "/api/bookings/"+b.ID+"/cancel", nil)
	expectError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = s.do(t, memberActor("m1"), http.MethodPost, "/api/bookings/"+b.ID+"/cancel", nil)
	expectStatus(t, rec, http.StatusOK)
	var canceled cancelBookingResponse
	decode(t, rec, &canceled)
	if canceled.Late {
		t.Error("cancel two days out reported late")
	}
	if len(canceled.Promotions) != 1 || !canceled.Promotions[0].Promoted || canceled.Promotions[0].MemberID != "m2" {
		t.Fatalf("promotions = %+v, want m2 promoted", canceled.Promotions)
	}

	rec = s.do(t, staffActor, http.MethodGet, "/api/classes/"+class.ID+"/roster", nil)
	expectStatus(t, rec, http.StatusOK)
	var roster rosterResponse
	decode(t, rec, &roster)
	if len(roster.Bookings) != 1 || roster.Bookings[0].MemberID != "m2" {
		t.Errorf("roster bookings = %+v, want m2 only", roster.Bookings)
	}
	if len(roster.Waitlist) != 0 || roster.SeatsRemaining != 0 {
		t.Errorf("roster = %+v, want empty waitlist and no seats", roster)
	}
}

// TestRoster_MemberNames verifies roster rows carry names from the member store.
func TestRoster_MemberNames(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	if err := s.stores.MemberStore.(*memberStore.SQLiteStore).Save(context.Background(), memberDomain.Member{
		ID: "m1", Name: "Ada Lovelace", Email: "ada@example.com", Status: memberDomain.StatusActive,
	}); err != nil {
		t.Fatalf("save member: %v", err)
	}
	class := s.createClass(t, 5)
	expectStatus(t, s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil), http.StatusCreated)

	rec := s.do(t, staffActor, http.MethodGet, "/api/classes/"+class.ID+"/roster", nil)
	expectStatus(t, rec, http.StatusOK)
	var roster rosterResponse
	decode(t, rec, &roster)
	if len(roster.Bookings) != 1 || roster.Bookings[0].MemberName != "Ada Lovelace" {
		t.Errorf("roster bookings = %+v", roster.Bookings)
	}
}

// TestErrorStatusMapping verifies rejection codes map to HTTP statuses.
func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	class := s.createClass(t, 2)
	start := testNow.Add(72 * time.Hour)

	tests := []struct {
		name   string
		actor  actor.Actor
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name: "unknown class", actor: memberActor("m1"), method: http.MethodPost,
			path: "/api/classes/nope/bookings", status: http.StatusNotFound, code: "CLASS_NOT_FOUND",
		},
		{
			name: "no access", actor: memberActor("m9"), method: http.MethodPost,
			path: "/api/classes/" + class.ID + "/bookings", status: http.StatusForbidden, code: "NO_ACCESS",
		},
		{
			name: "booking for another member", actor: memberActor("m9"), method: http.MethodPost,
			path: "/api/classes/" + class.ID + "/bookings", body: map[string]string{"member_id": "m1"},
			status: http.StatusForbidden, code: "FORBIDDEN",
		},
		{
			name: "zero capacity", actor: adminActor, method: http.MethodPost, path: "/api/classes",
			body:   map[string]any{"location_id": "loc-1", "title": "X", "start_at": start, "end_at": start.Add(time.Hour), "capacity": 0},
			status: http.StatusUnprocessableEntity, code: "INVALID_CAPACITY",
		},
		{
			name: "end before start", actor: adminActor, method: http.MethodPost, path: "/api/classes",
			body:   map[string]any{"location_id": "loc-1", "title": "X", "start_at": start, "end_at": start.Add(-time.Hour), "capacity": 3},
			status: http.StatusUnprocessableEntity, code: "INVALID_TIME_RANGE",
		},
		{
			name: "missing title", actor: adminActor, method: http.MethodPost, path: "/api/classes",
			body:   map[string]any{"location_id": "loc-1", "start_at": start, "end_at": start.Add(time.Hour), "capacity": 3},
			status: http.StatusBadRequest, code: "INVALID_INPUT",
		},
		{
			name: "class not full", actor: memberActor("m1"), method: http.MethodPost,
			path: "/api/classes/" + class.ID + "/waitlist", status: http.StatusConflict, code: "CLASS_NOT_FULL",
		},
		{
			name: "member on admin route", actor: memberActor("m1"), method: http.MethodPost,
			path: "/api/classes/" + class.ID + "/cancel", status: http.StatusForbidden, code: "FORBIDDEN",
		},
		{
			name: "unknown booking", actor: memberActor("m1"), method: http.MethodPost,
			path: "/api/bookings/nope/cancel", status: http.StatusNotFound, code: "BOOKING_NOT_FOUND",
		},
		{
			name: "unknown waitlist entry", actor: memberActor("m1"), method: http.MethodPost,
			path: "/api/waitlist/nope/leave", status: http.StatusNotFound, code: "WAITLIST_ENTRY_NOT_FOUND",
		},
		{
			name: "unknown route", actor: memberActor("m1"), method: http.MethodGet,
			path: "/api/nope", status: http.StatusNotFound, code: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.actor, tt.method, tt.path, tt.body)
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

// TestClassAdministration covers capacity, reschedule and cancel over HTTP.
func TestClassAdministration(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	s.grantAccess(t, "m2")
	class := s.createClass(t, 1)
	expectStatus(t, s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil), http.StatusCreated)
	expectStatus(t, s.do(t, memberActor("m2"), http.MethodPost, "/api/classes/"+class.ID+"/waitlist", nil), http.StatusCreated)

	rec := s.do(t, adminActor, http.MethodPut, "/api/classes/"+class.ID+"/capacity", map[string]int{"capacity": 2})
	expectStatus(t, rec, http.StatusOK)
	var updated struct {
		Class      classResponse       `json:"class"`
		Promotions []promotionResponse `json:"promotions"`
	}
	decode(t, rec, &updated)
	if updated.Class.Capacity != 2 || len(updated.Promotions) != 1 || updated.Promotions[0].MemberID != "m2" {
		t.Fatalf("update = %+v", updated)
	}

	rec = s.do(t, adminActor, http.MethodPut, "/api/classes/"+class.ID+"/capacity", map[string]int{"capacity": 1})
	expectError(t, rec, http.StatusConflict, "CAPACITY_BELOW_ENROLLED")

	newStart := testNow.Add(96 * time.Hour)
	rec = s.do(t, adminActor, http.MethodPost, "/api/classes/"+class.ID+"/reschedule", map[string]any{
		"start_at": newStart, "end_at": newStart.Add(90 * time.Minute),
	})
	expectStatus(t, rec, http.StatusOK)
	var moved classResponse
	decode(t, rec, &moved)
	if !moved.StartAt.Equal(newStart) {
		t.Errorf("start_at = %v, want %v", moved.StartAt, newStart)
	}

	for i := 0; i < 2; i++ {
		rec = s.do(t, adminActor, http.MethodPost, "/api/classes/"+class.ID+"/cancel", map[string]string{"reason": "instructor ill"})
		expectStatus(t, rec, http.StatusOK)
	}
	var canceled struct {
		Class           classResponse `json:"class"`
		AlreadyCanceled bool          `json:"already_canceled"`
	}
	decode(t, rec, &canceled)
	if !canceled.AlreadyCanceled || canceled.Class.Status != "canceled" {
		t.Errorf("second cancel = %+v, want already canceled", canceled)
	}

	rec = s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil)
	expectError(t, rec, http.StatusConflict, "CLASS_NOT_BOOKABLE")
}

// TestLocationClasses verifies the timetable listing and its query validation.
func TestLocationClasses(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	class := s.createClass(t, 1)
	expectStatus(t, s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil), http.StatusCreated)

	rec := s.do(t, memberActor("m1"), http.MethodGet, "/api/locations/loc-1/classes", nil)
	expectStatus(t, rec, http.StatusOK)
	var classes []classSummaryResponse
	decode(t, rec, &classes)
	if len(classes) != 1 || classes[0].ID != class.ID || !classes[0].Full {
		t.Fatalf("classes = %+v, want one full class", classes)
	}

	rec = s.do(t, memberActor("m1"), http.MethodGet, "/api/locations/loc-1/classes?from=yesterday", nil)
	expectError(t, rec, http.StatusBadRequest, "INVALID_INPUT")
}

// TestMemberAccess verifies members may only read their own access.
func TestMemberAccess(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")

	tests := []struct {
		name   string
		actor  actor.Actor
		path   string
		status int
		access bool
	}{
		{name: "self", actor: memberActor("m1"), path: "/api/members/m1/access?location_id=loc-1", status: http.StatusOK, access: true},
		{name: "staff for member", actor: staffActor, path: "/api/members/m1/access?location_id=loc-1", status: http.StatusOK, access: true},
		{name: "staff for lapsed member", actor: staffActor, path: "/api/members/m2/access?location_id=loc-1", status: http.StatusOK},
		{name: "other member", actor: memberActor("m2"), path: "/api/members/m1/access?location_id=loc-1", status: http.StatusForbidden},
		{name: "unknown location", actor: memberActor("m1"), path: "/api/members/m1/access?location_id=loc-9", status: http.StatusNotFound},
		{name: "missing location", actor: memberActor("m1"), path: "/api/members/m1/access", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.actor, http.MethodGet, tt.path, nil)
			expectStatus(t, rec, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			var resp accessResponse
			decode(t, rec, &resp)
			if resp.HasAccess != tt.access {
				t.Errorf("has_access = %v, want %v", resp.HasAccess, tt.access)
			}
		})
	}
}

// TestEnrollmentCheck verifies advisory and blocking capacity verdicts.
func TestEnrollmentCheck(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	limits := s.stores.CapacityStore.(*capacityStore.SQLiteStore)

	rec := s.do(t, staffActor, http.MethodPost, "/api/enrollments/check", map[string]string{"location_id": "loc-1"})
	expectStatus(t, rec, http.StatusOK)
	var open enrollmentCheckResponse
	decode(t, rec, &open)
	if !open.Allowed || open.Location.Status != capacity.VerdictNoLimit {
		t.Fatalf("check = %+v, want allowed with no limit", open)
	}

	one := 1
	if err := limits.SaveLimit(context.Background(), capacity.Limit{
		LocationID: "loc-1", MaxActiveMembers: &one, HardLimitEnforced: true,
	}); err != nil {
		t.Fatalf("SaveLimit: %v", err)
	}

	rec = s.do(t, staffActor, http.MethodGet, "/api/locations/loc-1/capacity", nil)
	expectStatus(t, rec, http.StatusOK)
	var ev evaluationResponse
	decode(t, rec, &ev)
	if ev.Status != capacity.VerdictBlockNew || ev.ActiveCount != 1 {
		t.Errorf("evaluation = %+v, want BLOCK_NEW with one active", ev)
	}

	rec = s.do(t, staffActor, http.MethodPost, "/api/enrollments/check", map[string]string{"location_id": "loc-1"})
	expectStatus(t, rec, http.StatusConflict)
	var blocked struct {
		Error  string                  `json:"error"`
		Result enrollmentCheckResponse `json:"result"`
	}
	decode(t, rec, &blocked)
	if blocked.Error != "ENROLLMENT_BLOCKED" || blocked.Result.Allowed {
		t.Errorf("blocked = %+v", blocked)
	}

	rec = s.do(t, memberActor("m1"), http.MethodPost, "/api/enrollments/check", map[string]string{"location_id": "loc-1"})
	expectError(t, rec, http.StatusForbidden, "FORBIDDEN")
}

// TestAdminOutbox verifies listing, manual retry and abandon of outbox entries.
func TestAdminOutbox(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	class := s.createClass(t, 3)
	expectStatus(t, s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil), http.StatusCreated)

	rec := s.do(t, adminActor, http.MethodGet, "/api/admin/outbox?status=pending", nil)
	expectStatus(t, rec, http.StatusOK)
	var listed struct {
		Entries []outboxEntryResponse `json:"entries"`
		Counts  map[string]int        `json:"counts"`
	}
	decode(t, rec, &listed)
	if len(listed.Entries) != 1 || listed.Counts[outbox.StatusPending] != 1 {
		t.Fatalf("outbox = %+v, want one pending entry", listed)
	}
	id := listed.Entries[0].ID

	rec = s.do(t, adminActor, http.MethodPost, "/api/admin/outbox/"+id+"/retry", nil)
	expectStatus(t, rec, http.StatusOK)
	var delivered outboxEntryResponse
	decode(t, rec, &delivered)
	if delivered.Status != outbox.StatusDone || delivered.ExternalID != "msg-1" {
		t.Errorf("delivered = %+v", delivered)
	}

	rec = s.do(t, adminActor, http.MethodPost, "/api/admin/outbox/"+id+"/retry", nil)
	expectError(t, rec, http.StatusConflict, "CONFLICT")

	rec = s.do(t, adminActor, http.MethodPost, "/api/admin/outbox/nope/abandon", nil)
	expectError(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = s.do(t, adminActor, http.MethodGet, "/api/admin/outbox?status=bogus", nil)
	expectError(t, rec, http.StatusBadRequest, "INVALID_INPUT")

	rec = s.do(t, staffActor, http.MethodGet, "/api/admin/outbox", nil)
	expectError(t, rec, http.StatusForbidden, "FORBIDDEN")
}

// TestAdminAuditTrail verifies audit filtering by resource.
func TestAdminAuditTrail(t *testing.T) {
	s := newTestServer(t)
	s.grantAccess(t, "m1")
	class := s.createClass(t, 3)
	expectStatus(t, s.do(t, memberActor("m1"), http.MethodPost, "/api/classes/"+class.ID+"/bookings", nil), http.StatusCreated)

	rec := s.do(t, adminActor, http.MethodGet, "/api/admin/audit?resource_id="+class.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	var events []struct {
		Action     string `json:"action"`
		ResourceID string `json:"resource_id"`
	}
	decode(t, rec, &events)
	actions := map[string]bool{}
	for _, ev := range events {
		if ev.ResourceID != class.ID {
			t.Errorf("resource_id = %q, want %q", ev.ResourceID, class.ID)
		}
		actions[ev.Action] = true
	}
	if !actions["create"] || !actions["book"] {
		t.Errorf("actions = %v, want create and book", actions)
	}

	rec = s.do(t, adminActor, http.MethodGet, "/api/admin/audit?from=last-week", nil)
	expectError(t, rec, http.StatusBadRequest, "INVALID_INPUT")
}

// TestAdminPerf verifies the timing snapshot includes recorded requests.
func TestAdminPerf(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(t, adminActor, http.MethodGet, "/api/locations/loc-1/classes", nil), http.StatusOK)

	rec := s.do(t, adminActor, http.MethodGet, "/api/admin/perf?window=8760h", nil)
	expectStatus(t, rec, http.StatusOK)
	var snap perf.Snapshot
	decode(t, rec, &snap)
	if snap.TotalRecorded == 0 {
		t.Error("TotalRecorded = 0, want recorded requests")
	}
}
