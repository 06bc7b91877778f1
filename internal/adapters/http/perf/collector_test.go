package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_Record_And_Snapshot verifies basic record and snapshot functionality.
func TestCollector_Record_And_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Name: "POST /api/classes/:id/bookings", StatusCode: 201, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Name: "POST /api/classes/:id/bookings", StatusCode: 409, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Name: "UPDATE class_instance", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindOperation, Name: "BookClass", Failed: true, DurationMs: 7, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 {
		t.Errorf("TotalRecorded = %d, want 4", snap.TotalRecorded)
	}
	if len(snap.SlowestRequests) != 1 {
		t.Fatalf("SlowestRequests len = %d, want 1", len(snap.SlowestRequests))
	}
	if snap.SlowestRequests[0].AvgMs != 20 {
		t.Errorf("AvgMs = %v, want 20", snap.SlowestRequests[0].AvgMs)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Fatalf("SlowestQueries len = %d, want 1", len(snap.SlowestQueries))
	}
	if len(snap.SlowestOperations) != 1 || snap.SlowestOperations[0].Failures != 1 {
		t.Errorf("SlowestOperations = %+v, want one failed BookClass", snap.SlowestOperations)
	}
}

// TestCollector_RingBuffer_Overwrites verifies oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Name: "GET /x", DurationMs: float64(i), Timestamp: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestRequests) != 1 {
		t.Fatalf("SlowestRequests len = %d, want 1", len(snap.SlowestRequests))
	}
	if snap.SlowestRequests[0].Count != 3 {
		t.Errorf("Count = %d, want 3 (ring buffer kept last 3)", snap.SlowestRequests[0].Count)
	}
}

// TestCollector_Percentiles verifies P50/P95/P99 calculation.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()

	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Name: "GET /p", DurationMs: float64(i), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.RequestP50Ms < 49 || snap.RequestP50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.RequestP50Ms)
	}
	if snap.RequestP95Ms < 94 || snap.RequestP95Ms > 96 {
		t.Errorf("P95 = %v, want ~95", snap.RequestP95Ms)
	}
	if snap.RequestP99Ms < 98 || snap.RequestP99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.RequestP99Ms)
	}
}

// TestCollector_Snapshot_FiltersBySince verifies old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()
	c.Record(Entry{Kind: KindQuery, Name: "SELECT booking", DurationMs: 1, Timestamp: now.Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindQuery, Name: "SELECT booking", DurationMs: 3, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Hour), 10)
	if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Count != 1 {
		t.Errorf("SlowestQueries = %+v, want one recent entry", snap.SlowestQueries)
	}
}

// TestCollector_ConcurrentRecord verifies no races under concurrent writers.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Record(Entry{Kind: KindOperation, Name: "PromoteFromWaitlist", DurationMs: 1, Timestamp: time.Now()})
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}
