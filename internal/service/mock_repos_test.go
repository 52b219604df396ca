package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	"github.com/Dribsphire/BMADOJT-sub000/internal/repository"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
)

// ── in-memory store shared by the mock repositories ──

type mockStore struct {
	mu sync.Mutex

	sections     map[string]*model.Section
	students     map[string]*model.Student
	records      map[string]*model.AttendanceRecord
	requests     map[string]*model.ForgotTimeoutRequest
	requirements map[string]*model.DocumentRequirement
	submissions  []model.DocumentSubmission
	violations   []model.StudentViolation

	// calls records lock and sum operations in order
	calls []string

	// injected failures
	documentErr  error
	violationErr error
	studentErr   error
	closeErr     error
	decideErr    error
}

func newMockStore() *mockStore {
	return &mockStore{
		sections:     make(map[string]*model.Section),
		students:     make(map[string]*model.Student),
		records:      make(map[string]*model.AttendanceRecord),
		requests:     make(map[string]*model.ForgotTimeoutRequest),
		requirements: make(map[string]*model.DocumentRequirement),
	}
}

func (s *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		Student:       &mockStudentRepo{s},
		Attendance:    &mockAttendanceRepo{s},
		ForgotTimeout: &mockForgotTimeoutRepo{s},
		Document:      &mockDocumentRepo{s},
		Violation:     &mockViolationRepo{s},
	}
}

// ── fixtures ──

func (s *mockStore) addSection(id, instructorID string) {
	s.sections[id] = &model.Section{SectionID: id, Name: "Section " + id, InstructorID: instructorID}
}

func (s *mockStore) addStudent(id, sectionID string, start time.Time, status string) *model.Student {
	st := &model.Student{
		StudentID:        id,
		UserID:           "user-" + id,
		StudentNumber:    "2025-" + id,
		FullName:         "Student " + id,
		OJTStartDate:     &start,
		OJTStatus:        &status,
		AccumulatedHours: decimal.Zero,
	}
	if sectionID != "" {
		st.SectionID = &sectionID
	}
	s.students[id] = st
	return st
}

func (s *mockStore) addRequirement(id string, required bool) {
	s.requirements[id] = &model.DocumentRequirement{DocumentID: id, Name: "doc " + id, IsRequired: required}
}

func (s *mockStore) addSubmission(studentID, documentID, status string) {
	s.submissions = append(s.submissions, model.DocumentSubmission{
		SubmissionID: uuid.NewString(),
		StudentID:    studentID,
		DocumentID:   documentID,
		Status:       status,
	})
}

func (s *mockStore) addViolation(studentID string, at time.Time) {
	s.violations = append(s.violations, model.StudentViolation{
		ViolationID: uuid.NewString(),
		StudentID:   studentID,
		Kind:        "tardiness",
		OccurredAt:  at,
	})
}

func (s *mockStore) addRecord(studentID string, block model.BlockType, timeIn time.Time, timeOut *time.Time, hours string) *model.AttendanceRecord {
	in := timeIn
	r := &model.AttendanceRecord{
		AttendanceRecordID: uuid.NewString(),
		StudentID:          studentID,
		AttendanceDate:     civilDate(timeIn),
		BlockType:          block,
		TimeIn:             &in,
		TimeOut:            timeOut,
		HoursEarned:        decimal.RequireFromString(hours),
	}
	s.records[r.AttendanceRecordID] = r
	return r
}

func (s *mockStore) addRequest(record *model.AttendanceRecord, createdAt time.Time) *model.ForgotTimeoutRequest {
	req := &model.ForgotTimeoutRequest{
		RequestID:          uuid.NewString(),
		AttendanceRecordID: record.AttendanceRecordID,
		StudentID:          record.StudentID,
		Status:             model.RequestStatusPending,
	}
	req.CreatedAt = createdAt
	s.requests[req.RequestID] = req
	return req
}

func sameDay(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *mockStore }

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.studentErr != nil {
		return nil, m.s.studentErr
	}
	st, ok := m.s.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *st
	if st.SectionID != nil {
		cp.Section = m.s.sections[*st.SectionID]
	}
	return &cp, nil
}

func (m *mockStudentRepo) LockForUpdate(_ context.Context, id string) (*model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.studentErr != nil {
		return nil, m.s.studentErr
	}
	st, ok := m.s.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	m.s.calls = append(m.s.calls, "lock:"+id)
	cp := *st
	return &cp, nil
}

func (m *mockStudentRepo) UpdateAccumulatedHours(_ context.Context, id string, hours decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	st.AccumulatedHours = hours
	return nil
}

func (m *mockStudentRepo) ListBatch(_ context.Context, afterID string, limit int) ([]model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ids := make([]string, 0, len(m.s.students))
	for id := range m.s.students {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.Student, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.s.students[id])
	}
	return out, nil
}

func (m *mockStudentRepo) IsSupervisedBy(_ context.Context, studentID, instructorID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.students[studentID]
	if !ok || st.SectionID == nil {
		return false, nil
	}
	sec, ok := m.s.sections[*st.SectionID]
	return ok && sec.InstructorID == instructorID, nil
}

// ── Mock AttendanceRepository ──

// Create enforces the same uniqueness rules as the database.
type mockAttendanceRepo struct{ s *mockStore }

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.records {
		if r.StudentID == record.StudentID && r.BlockType == record.BlockType && sameDay(r.AttendanceDate, record.AttendanceDate) {
			return repository.ErrDuplicateKey
		}
	}
	if record.AttendanceRecordID == "" {
		record.AttendanceRecordID = uuid.NewString()
	}
	cp := *record
	m.s.records[cp.AttendanceRecordID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockAttendanceRepo) FindByStudentDateBlock(_ context.Context, studentID string, date time.Time, block model.BlockType) (*model.AttendanceRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.records {
		if r.StudentID == studentID && r.BlockType == block && sameDay(r.AttendanceDate, date) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) FindOpen(_ context.Context, studentID string, block model.BlockType, date time.Time) (*model.AttendanceRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.records {
		if r.StudentID == studentID && r.BlockType == block && sameDay(r.AttendanceDate, date) && r.IsOpen() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAttendanceRepo) Close(_ context.Context, id string, timeOut time.Time, hours decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.closeErr != nil {
		return m.s.closeErr
	}
	r, ok := m.s.records[id]
	if !ok || !r.IsOpen() {
		return pkgerrors.ErrOptimisticLock
	}
	r.TimeOut = &timeOut
	r.HoursEarned = hours
	return nil
}

func (m *mockAttendanceRepo) SumCompletedHours(_ context.Context, studentID string) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls = append(m.s.calls, "sum:"+studentID)
	total := decimal.Zero
	for _, r := range m.s.records {
		if r.StudentID == studentID && r.IsCompleted() {
			total = total.Add(r.HoursEarned)
		}
	}
	return total, nil
}

// ── Mock ForgotTimeoutRepository ──

type mockForgotTimeoutRepo struct{ s *mockStore }

func (m *mockForgotTimeoutRepo) Create(_ context.Context, req *model.ForgotTimeoutRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.requests {
		if r.AttendanceRecordID == req.AttendanceRecordID && r.Status == model.RequestStatusPending {
			return repository.ErrDuplicateKey
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	cp := *req
	m.s.requests[cp.RequestID] = &cp
	return nil
}

func (m *mockForgotTimeoutRepo) GetByID(_ context.Context, id string) (*model.ForgotTimeoutRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.load(id)
}

func (m *mockForgotTimeoutRepo) GetByIDForUpdate(_ context.Context, id string) (*model.ForgotTimeoutRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.load(id)
}

// load copies the request and its record; callers hold the lock.
func (m *mockForgotTimeoutRepo) load(id string) (*model.ForgotTimeoutRequest, error) {
	r, ok := m.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	if rec, ok := m.s.records[r.AttendanceRecordID]; ok {
		recCp := *rec
		cp.AttendanceRecord = &recCp
	}
	return &cp, nil
}

func (m *mockForgotTimeoutRepo) HasPending(_ context.Context, attendanceRecordID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.requests {
		if r.AttendanceRecordID == attendanceRecordID && r.Status == model.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockForgotTimeoutRepo) Decide(_ context.Context, id, status, decidedBy string, response *string, decidedAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.decideErr != nil {
		return m.s.decideErr
	}
	r, ok := m.s.requests[id]
	if !ok || r.Status != model.RequestStatusPending {
		return pkgerrors.ErrOptimisticLock
	}
	r.Status = status
	r.DecidedBy = &decidedBy
	r.DecidedAt = &decidedAt
	r.InstructorResponse = response
	return nil
}

func (m *mockForgotTimeoutRepo) ListForInstructor(_ context.Context, instructorID, status string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(r *model.ForgotTimeoutRequest) bool {
		st, ok := m.s.students[r.StudentID]
		if !ok || st.SectionID == nil {
			return false
		}
		sec, ok := m.s.sections[*st.SectionID]
		if !ok || sec.InstructorID != instructorID {
			return false
		}
		return status == "" || r.Status == status
	}, offset, limit)
}

func (m *mockForgotTimeoutRepo) ListByStudent(_ context.Context, studentID string, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(r *model.ForgotTimeoutRequest) bool {
		return r.StudentID == studentID
	}, offset, limit)
}

func (m *mockForgotTimeoutRepo) list(keep func(*model.ForgotTimeoutRequest) bool, offset, limit int) ([]model.ForgotTimeoutRequest, int64, error) {
	var all []model.ForgotTimeoutRequest
	for _, r := range m.s.requests {
		if !keep(r) {
			continue
		}
		cp := *r
		if rec, ok := m.s.records[r.AttendanceRecordID]; ok {
			recCp := *rec
			cp.AttendanceRecord = &recCp
		}
		if st, ok := m.s.students[r.StudentID]; ok {
			stCp := *st
			if st.SectionID != nil {
				stCp.Section = m.s.sections[*st.SectionID]
			}
			cp.Student = &stCp
		}
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.ForgotTimeoutRequest{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct{ s *mockStore }

func (m *mockDocumentRepo) CountRequired(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.documentErr != nil {
		return 0, m.s.documentErr
	}
	var n int64
	for _, req := range m.s.requirements {
		if req.IsRequired {
			n++
		}
	}
	return n, nil
}

func (m *mockDocumentRepo) CountApprovedRequired(_ context.Context, studentID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.documentErr != nil {
		return 0, m.s.documentErr
	}
	approved := make(map[string]struct{})
	for _, sub := range m.s.submissions {
		req, ok := m.s.requirements[sub.DocumentID]
		if ok && req.IsRequired && sub.StudentID == studentID && sub.Status == model.DocumentSubmissionApproved {
			approved[sub.DocumentID] = struct{}{}
		}
	}
	return int64(len(approved)), nil
}

// ── Mock ViolationRepository ──

type mockViolationRepo struct{ s *mockStore }

func (m *mockViolationRepo) CountBetween(_ context.Context, studentID string, from, to time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.violationErr != nil {
		return 0, m.s.violationErr
	}
	var n int64
	for _, v := range m.s.violations {
		if v.StudentID == studentID && !v.OccurredAt.Before(from) && !v.OccurredAt.After(to) {
			n++
		}
	}
	return n, nil
}

// ── clock ──

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
