package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/config"
)

// ── test helpers ──

var pht = time.FixedZone("PHT", 8*60*60)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, pht)
}

type testEnv struct {
	store *mockStore
	clock *fixedClock
	svc   *Service
}

func testConfig() *config.Config {
	return &config.Config{
		Attendance: config.AttendanceConfig{
			Timezone:           "Asia/Manila",
			StandingWindowDays: 30,
		},
		Reconciliation: config.ReconciliationConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			BulkMaxItems:    100,
			DecisionTimeout: 5 * time.Second,
		},
	}
}

// setupTestEnv builds every service on one in-memory store. The clock
// starts at 2025-01-10 08:00 PHT.
func setupTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	store := newMockStore()
	clock := newFixedClock(at(2025, time.January, 10, 8, 0))
	svc := NewService(cfg, store.repository(), clock, nil, zap.NewNop())
	return &testEnv{store: store, clock: clock, svc: svc}
}

// seedEligibleStudent adds a fully compliant, active student with no
// violations in section sec-1 owned by instructor inst-1.
func (e *testEnv) seedEligibleStudent(id string) {
	if _, ok := e.store.sections["sec-1"]; !ok {
		e.store.addSection("sec-1", "inst-1")
	}
	e.store.addStudent(id, "sec-1", at(2025, time.January, 6, 0, 0), "on_track")
	for _, doc := range []string{"doc-1", "doc-2"} {
		if _, ok := e.store.requirements[doc]; !ok {
			e.store.addRequirement(doc, true)
		}
		e.store.addSubmission(id, doc, "approved")
	}
}
