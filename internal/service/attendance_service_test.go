package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/jwt"
)

// ── CheckConcurrentSession ──

func TestCheckConcurrentSession_OpenRecordBlocks(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 10, 7, 55), nil, "0")

	res, err := env.svc.Attendance.CheckConcurrentSession(context.Background(), "stu-1", "morning", time.Time{})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "concurrent_access", res.ReasonCode)
}

func TestCheckConcurrentSession_OnlyExactTriple(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 10, 7, 55), nil, "0")
	ctx := context.Background()

	// other block, same day
	res, err := env.svc.Attendance.CheckConcurrentSession(ctx, "stu-1", "afternoon", time.Time{})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// other student
	res, err = env.svc.Attendance.CheckConcurrentSession(ctx, "stu-2", "morning", time.Time{})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// other day
	res, err = env.svc.Attendance.CheckConcurrentSession(ctx, "stu-1", "morning", at(2025, 1, 11, 0, 0))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckConcurrentSession_ClosedRecordDoesNotBlockNewDay(t *testing.T) {
	env := setupTestEnv(t)
	out := at(2025, 1, 9, 12, 0)
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 9, 8, 0), &out, "4.00")

	res, err := env.svc.Attendance.CheckConcurrentSession(context.Background(), "stu-1", "morning", time.Time{})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = env.svc.Attendance.CheckConcurrentSession(context.Background(), "stu-1", "morning", at(2025, 1, 9, 0, 0))
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a closed record is not an open session")
}

func TestCheckConcurrentSession_UnknownBlock(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.Attendance.CheckConcurrentSession(context.Background(), "stu-1", "night", time.Time{})
	assert.Equal(t, pkgerrors.KindValidation, pkgerrors.KindOf(err))
}

// ── ComputeBlockHours preview ──

func TestAttendance_ComputeBlockHours(t *testing.T) {
	env := setupTestEnv(t)

	res, err := env.svc.Attendance.ComputeBlockHours(&dto.BlockHoursRequest{
		TimeIn:    "2025-01-10T08:00:00+08:00",
		BlockType: "morning",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10T12:00:00+08:00", res.TimeOut)
	assert.Equal(t, "2025-01-10T12:00:00+08:00", res.BlockEnd)
	assert.Equal(t, "4.00", res.HoursEarned)

	res, err = env.svc.Attendance.ComputeBlockHours(&dto.BlockHoursRequest{
		TimeIn:    "2025-01-10T12:45:00+08:00",
		BlockType: "morning",
	})
	require.NoError(t, err)
	assert.True(t, res.Anomalous)
	assert.Equal(t, "2025-01-10T12:45:00+08:00", res.TimeOut)
	assert.Equal(t, "2025-01-10T12:00:00+08:00", res.BlockEnd)

	_, err = env.svc.Attendance.ComputeBlockHours(&dto.BlockHoursRequest{TimeIn: "yesterday", BlockType: "morning"})
	assert.ErrorIs(t, err, ErrInvalidTimeIn)
}

// ── TimeIn ──

func TestTimeIn_Success(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	photo := "photos/stu-1/0800.jpg"

	rec, err := env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{
		BlockType: "morning",
		PhotoRef:  &photo,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "2025-01-10", rec.Date)
	assert.Equal(t, "2025-01-10T08:00:00+08:00", rec.TimeIn)
	assert.Empty(t, rec.TimeOut)
	assert.Equal(t, "0.00", rec.HoursEarned)

	stored := env.store.records[rec.ID]
	require.NotNil(t, stored)
	assert.Equal(t, photo, *stored.PhotoRef)
}

func TestTimeIn_NotEligible(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	env.store.addRequirement("doc-3", true)

	_, err := env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{BlockType: "morning"})

	e, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.KindAccessDenied, e.Kind)
	assert.Equal(t, dto.ReasonDocumentCompliance, e.Code)
	assert.Equal(t, dto.HintDocuments, e.Hint)
	assert.Empty(t, env.store.records)
}

func TestTimeIn_EligibilitySystemError(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	env.store.documentErr = errors.New("db down")

	_, err := env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{BlockType: "morning"})

	e, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.KindSystem, e.Kind)
	assert.NotEmpty(t, e.CorrelationID)
}

func TestTimeIn_SecondAttemptRefused(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	ctx := context.Background()

	_, err := env.svc.Attendance.TimeIn(ctx, "stu-1", &dto.TimeInRequest{BlockType: "morning"})
	require.NoError(t, err)

	_, err = env.svc.Attendance.TimeIn(ctx, "stu-1", &dto.TimeInRequest{BlockType: "morning"})
	assert.ErrorIs(t, err, ErrConcurrentAccess)

	// another block the same day is independent
	_, err = env.svc.Attendance.TimeIn(ctx, "stu-1", &dto.TimeInRequest{BlockType: "afternoon"})
	assert.NoError(t, err)
}

func TestTimeIn_BlockAlreadyCompleted(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	out := at(2025, 1, 10, 7, 59)
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 10, 7, 0), &out, "0.98")

	_, err := env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{BlockType: "morning"})
	assert.ErrorIs(t, err, ErrBlockCompleted)
}

func TestTimeIn_SimultaneousAttempts(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{BlockType: "morning"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConcurrentAccess)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.store.records, 1)
}

func TestTimeIn_UnknownBlock(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")

	_, err := env.svc.Attendance.TimeIn(context.Background(), "stu-1", &dto.TimeInRequest{BlockType: "lunch"})
	assert.ErrorIs(t, err, ErrUnknownBlockType)
}

// ── TimeOut ──

func TestTimeOut_Success(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	out := at(2025, 1, 9, 12, 0)
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 9, 8, 0), &out, "4.00")
	ctx := context.Background()

	_, err := env.svc.Attendance.TimeIn(ctx, "stu-1", &dto.TimeInRequest{BlockType: "morning"})
	require.NoError(t, err)

	env.clock.Set(at(2025, 1, 10, 11, 15))
	rec, err := env.svc.Attendance.TimeOut(ctx, "stu-1", &dto.TimeOutRequest{BlockType: "morning"})
	require.NoError(t, err)
	assert.Equal(t, "3.25", rec.HoursEarned)
	assert.Equal(t, "2025-01-10T11:15:00+08:00", rec.TimeOut)
	assert.Equal(t, "7.25", rec.AccumulatedHours)
	assert.Equal(t, "7.25", env.store.students["stu-1"].AccumulatedHours.StringFixed(2))
	assertLockedBeforeSum(t, env.store, "stu-1")
}

func TestTimeOut_AfterBlockEndCountsUntilEnd(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addStudent("stu-1", "", at(2025, 1, 6, 0, 0), "on_track")
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 10, 8, 0), nil, "0")
	env.clock.Set(at(2025, 1, 10, 12, 40))

	rec, err := env.svc.Attendance.TimeOut(context.Background(), "stu-1", &dto.TimeOutRequest{BlockType: "morning"})
	require.NoError(t, err)
	assert.Equal(t, "4.00", rec.HoursEarned)
	assert.Equal(t, "2025-01-10T12:40:00+08:00", rec.TimeOut)
}

func TestTimeOut_NoOpenSession(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addStudent("stu-1", "", at(2025, 1, 6, 0, 0), "on_track")
	// yesterday's forgotten session is reconciled, not timed out
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 9, 8, 0), nil, "0")

	_, err := env.svc.Attendance.TimeOut(context.Background(), "stu-1", &dto.TimeOutRequest{BlockType: "morning"})
	assert.ErrorIs(t, err, ErrNoOpenSession)
	assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(err))
}

func TestTimeOut_WriteFailureIsSystemError(t *testing.T) {
	env := setupTestEnv(t)
	env.store.addStudent("stu-1", "", at(2025, 1, 6, 0, 0), "on_track")
	env.store.addRecord("stu-1", model.BlockMorning, at(2025, 1, 10, 8, 0), nil, "0")
	env.store.closeErr = errors.New("disk full")
	env.clock.Set(at(2025, 1, 10, 11, 0))

	_, err := env.svc.Attendance.TimeOut(context.Background(), "stu-1", &dto.TimeOutRequest{BlockType: "morning"})

	assert.Equal(t, pkgerrors.KindSystem, pkgerrors.KindOf(err))
	assert.NotContains(t, pkgerrors.PublicMessage(err), "disk full")
}

func TestParseDate(t *testing.T) {
	env := setupTestEnv(t)

	d, err := env.svc.Attendance.ParseDate("")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", d.Format(dateLayout))

	d, err = env.svc.Attendance.ParseDate("2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", d.Format(dateLayout))

	_, err = env.svc.Attendance.ParseDate("01/02/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

// ── AuthorizeStudentAccess ──

func TestAuthorizeStudentAccess(t *testing.T) {
	env := setupTestEnv(t)
	env.seedEligibleStudent("stu-1")
	env.store.addSection("sec-2", "inst-2")
	env.store.addStudent("stu-2", "sec-2", at(2025, 1, 6, 0, 0), "on_track")
	ctx := context.Background()

	tests := []struct {
		name      string
		actor     string
		role      string
		studentID string
		wantErr   error
	}{
		{"admin reads anyone", "admin-1", jwt.RoleAdmin, "stu-2", nil},
		{"instructor reads own section", "inst-1", jwt.RoleInstructor, "stu-1", nil},
		{"instructor of another section", "inst-1", jwt.RoleInstructor, "stu-2", ErrNotSupervisor},
		{"instructor and unknown student", "inst-1", jwt.RoleInstructor, "ghost", ErrNotSupervisor},
		{"student reads self", "stu-1", jwt.RoleStudent, "stu-1", nil},
		{"student reads another", "stu-1", jwt.RoleStudent, "stu-2", ErrNotSupervisor},
		{"unknown role", "x", "auditor", "stu-1", ErrNotSupervisor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.Attendance.AuthorizeStudentAccess(ctx, tt.actor, tt.role, tt.studentID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, pkgerrors.KindAccessDenied, pkgerrors.KindOf(err))
		})
	}
}
