package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// memStore is an in-memory stand-in for the postgres schema. It enforces the
// same uniqueness rules as the migrations.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	accounts    map[int64]*models.Account
	students    map[int64]*models.Student
	teachers    map[int64]*models.Teacher
	courses     map[int64]*models.Course
	enrollments map[[2]int64]bool
	attendance  map[int64]*models.AttendanceRecord
	tokens      map[int64]*models.QrToken
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[int64]*models.Account{},
		students:    map[int64]*models.Student{},
		teachers:    map[int64]*models.Teacher{},
		courses:     map[int64]*models.Course{},
		enrollments: map[[2]int64]bool{},
		attendance:  map[int64]*models.AttendanceRecord{},
		tokens:      map[int64]*models.QrToken{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) attendanceExists(studentID, courseID int64, date time.Time) bool {
	for _, a := range m.attendance {
		if a.StudentID == studentID && a.CourseID == courseID && a.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (m *memStore) records() []*models.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AttendanceRecord, 0, len(m.attendance))
	for _, a := range m.attendance {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (m *memStore) token(value string) *models.QrToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == value {
			cp := *t
			return &cp
		}
	}
	return nil
}

// accounts

type fakeAccountRepo struct{ *memStore }

func (m *memStore) profileTaken(selfID int64, links models.AccountLinks) bool {
	for _, a := range m.accounts {
		if a.ID == selfID {
			continue
		}
		if links.TeacherID != nil && a.TeacherID != nil && *a.TeacherID == *links.TeacherID {
			return true
		}
		if links.StudentID != nil && a.StudentID != nil && *a.StudentID == *links.StudentID {
			return true
		}
	}
	return false
}

func (r fakeAccountRepo) Create(_ context.Context, a *models.Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return 0, apperrors.ErrUsernameTaken
		}
	}
	if r.profileTaken(0, models.AccountLinks{TeacherID: a.TeacherID, StudentID: a.StudentID}) {
		return 0, apperrors.ErrProfileLinked
	}
	a.ID = r.id()
	a.CreatedAt = time.Now().UTC()
	cp := *a
	r.accounts[a.ID] = &cp
	return a.ID, nil
}

func (r fakeAccountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("account not found")
	}
	cp := *a
	return &cp, nil
}

func (r fakeAccountRepo) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("account not found")
}

func (r fakeAccountRepo) List(_ context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Account{}
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r fakeAccountRepo) UpdateLinks(_ context.Context, id int64, links models.AccountLinks) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("account not found")
	}
	if r.profileTaken(id, links) {
		return apperrors.ErrProfileLinked
	}
	a.TeacherID, a.StudentID = links.TeacherID, links.StudentID
	return nil
}

func (r fakeAccountRepo) CountByRole(_ context.Context, role models.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

// students

type fakeStudentRepo struct{ *memStore }

func (r fakeStudentRepo) Create(_ context.Context, s *models.Student) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	cp := *s
	r.students[s.ID] = &cp
	return s.ID, nil
}

func (r fakeStudentRepo) GetByID(_ context.Context, id int64) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("student not found")
	}
	cp := *s
	return &cp, nil
}

func (r fakeStudentRepo) List(_ context.Context) ([]*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Student{}
	for _, s := range r.students {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeStudentRepo) Update(_ context.Context, id int64, u models.PersonUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("student not found")
	}
	if u.FirstName != nil {
		s.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		s.LastName = *u.LastName
	}
	return nil
}

func (r fakeStudentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return apperrors.NewResourceNotFoundError("student not found")
	}
	for key := range r.enrollments {
		if key[1] == id {
			delete(r.enrollments, key)
		}
	}
	for aid, a := range r.attendance {
		if a.StudentID == id {
			delete(r.attendance, aid)
		}
	}
	for _, a := range r.accounts {
		if a.StudentID != nil && *a.StudentID == id {
			a.StudentID = nil
		}
	}
	delete(r.students, id)
	return nil
}

// teachers

type fakeTeacherRepo struct{ *memStore }

func (r fakeTeacherRepo) Create(_ context.Context, t *models.Teacher) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.id()
	cp := *t
	r.teachers[t.ID] = &cp
	return t.ID, nil
}

func (r fakeTeacherRepo) GetByID(_ context.Context, id int64) (*models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("teacher not found")
	}
	cp := *t
	return &cp, nil
}

func (r fakeTeacherRepo) List(_ context.Context) ([]*models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Teacher{}
	for _, t := range r.teachers {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeTeacherRepo) Update(_ context.Context, id int64, u models.PersonUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("teacher not found")
	}
	if u.FirstName != nil {
		t.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		t.LastName = *u.LastName
	}
	return nil
}

func (r fakeTeacherRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[id]; !ok {
		return apperrors.NewResourceNotFoundError("teacher not found")
	}
	for _, c := range r.courses {
		if c.TeacherID != nil && *c.TeacherID == id {
			c.TeacherID = nil
		}
	}
	for _, a := range r.accounts {
		if a.TeacherID != nil && *a.TeacherID == id {
			a.TeacherID = nil
		}
	}
	for tid, t := range r.tokens {
		if t.TeacherID == id {
			delete(r.tokens, tid)
		}
	}
	delete(r.teachers, id)
	return nil
}

// courses

type fakeCourseRepo struct{ *memStore }

func (r fakeCourseRepo) slotTakenLocked(teacherID int64, slot models.TimeSlot, exclude int64) bool {
	for _, c := range r.courses {
		if c.ID != exclude && c.TeacherID != nil && *c.TeacherID == teacherID && c.TimeSlot == slot {
			return true
		}
	}
	return false
}

func (r fakeCourseRepo) Create(_ context.Context, c *models.Course) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.TeacherID != nil && r.slotTakenLocked(*c.TeacherID, c.TimeSlot, 0) {
		return 0, apperrors.ErrScheduleConflict
	}
	c.ID = r.id()
	cp := *c
	r.courses[c.ID] = &cp
	return c.ID, nil
}

func (r fakeCourseRepo) GetByID(_ context.Context, id int64) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("course not found")
	}
	cp := *c
	return &cp, nil
}

func (r fakeCourseRepo) filter(keep func(*models.Course) bool) []*models.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Course{}
	for _, c := range r.courses {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakeCourseRepo) List(_ context.Context) ([]*models.Course, error) {
	return r.filter(func(*models.Course) bool { return true }), nil
}

func (r fakeCourseRepo) ListByTeacher(_ context.Context, teacherID int64) ([]*models.Course, error) {
	return r.filter(func(c *models.Course) bool { return c.TeacherID != nil && *c.TeacherID == teacherID }), nil
}

func (r fakeCourseRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.Course, error) {
	return r.filter(func(c *models.Course) bool { return r.enrollments[[2]int64{c.ID, studentID}] }), nil
}

func (r fakeCourseRepo) Update(_ context.Context, id int64, u models.CourseUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("course not found")
	}
	next := u.Apply(*c)
	if next.TeacherID != nil && r.slotTakenLocked(*next.TeacherID, next.TimeSlot, id) {
		return apperrors.ErrScheduleConflict
	}
	*c = next
	return nil
}

func (r fakeCourseRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return apperrors.NewResourceNotFoundError("course not found")
	}
	for key := range r.enrollments {
		if key[0] == id {
			delete(r.enrollments, key)
		}
	}
	for aid, a := range r.attendance {
		if a.CourseID == id {
			delete(r.attendance, aid)
		}
	}
	for tid, t := range r.tokens {
		if t.CourseID == id {
			delete(r.tokens, tid)
		}
	}
	delete(r.courses, id)
	return nil
}

func (r fakeCourseRepo) SlotTaken(_ context.Context, teacherID int64, slot models.TimeSlot, exclude int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotTakenLocked(teacherID, slot, exclude), nil
}

// enrollments

type fakeEnrollmentRepo struct{ *memStore }

func (r fakeEnrollmentRepo) Enroll(_ context.Context, courseID, studentID int64) (models.EnrollOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{courseID, studentID}
	if r.enrollments[key] {
		return models.AlreadyEnrolled, nil
	}
	r.enrollments[key] = true
	return models.Enrolled, nil
}

func (r fakeEnrollmentRepo) Unenroll(_ context.Context, courseID, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{courseID, studentID}
	if !r.enrollments[key] {
		return apperrors.NewResourceNotFoundError("enrollment not found")
	}
	delete(r.enrollments, key)
	return nil
}

func (r fakeEnrollmentRepo) ListStudents(_ context.Context, courseID int64) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Student{}
	for key := range r.enrollments {
		if key[0] == courseID {
			if s, ok := r.students[key[1]]; ok {
				out = append(out, *s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// attendance

type fakeAttendanceRepo struct{ *memStore }

func (r fakeAttendanceRepo) InsertIfAbsent(_ context.Context, rec *models.AttendanceRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attendanceExists(rec.StudentID, rec.CourseID, rec.Date) {
		return false, nil
	}
	rec.ID = r.id()
	rec.CreatedAt = time.Now().UTC()
	cp := *rec
	r.attendance[rec.ID] = &cp
	return true, nil
}

func (r fakeAttendanceRepo) GetByID(_ context.Context, id int64) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attendance[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("attendance record not found")
	}
	cp := *a
	return &cp, nil
}

func (r fakeAttendanceRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attendance[id]; !ok {
		return apperrors.NewResourceNotFoundError("attendance record not found")
	}
	delete(r.attendance, id)
	return nil
}

func matches(a *models.AttendanceRecord, f models.AttendanceFilter) bool {
	switch {
	case f.StudentID != nil && a.StudentID != *f.StudentID:
		return false
	case f.TeacherID != nil && (a.TeacherID == nil || *a.TeacherID != *f.TeacherID):
		return false
	case f.CourseID != nil && a.CourseID != *f.CourseID:
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case f.From != nil && a.Date.Before(models.DateOf(*f.From)):
		return false
	case f.To != nil && a.Date.After(models.DateOf(*f.To)):
		return false
	}
	return true
}

func (r fakeAttendanceRepo) Query(_ context.Context, f models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	all := []*models.AttendanceRecord{}
	for _, a := range r.records() {
		if matches(a, f) {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (f.Page - 1) * f.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r fakeAttendanceRepo) Summary(_ context.Context, f models.AttendanceFilter) (models.AttendanceSummary, error) {
	var s models.AttendanceSummary
	for _, a := range r.records() {
		if matches(a, f) {
			s.Add(a.Status, 1)
		}
	}
	return s, nil
}

// qr tokens

type fakeQrTokenRepo struct {
	*memStore
	// redemption serializes RunRedemption units the way row locks and
	// SERIALIZABLE isolation do in postgres.
	redemption sync.Mutex
	// collisions makes the next n Create calls fail with a conflict.
	collisions int
}

func (r *fakeQrTokenRepo) Create(_ context.Context, t *models.QrToken) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collisions > 0 {
		r.collisions--
		return 0, apperrors.NewConflictError("qr token already exists")
	}
	for _, existing := range r.tokens {
		if existing.Token == t.Token {
			return 0, apperrors.NewConflictError("qr token already exists")
		}
	}
	t.ID = r.id()
	cp := *t
	r.tokens[t.ID] = &cp
	return t.ID, nil
}

func (r *fakeQrTokenRepo) ListRecent(_ context.Context, teacherID *int64, limit uint64) ([]*models.QrToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.QrToken{}
	for _, t := range r.tokens {
		if teacherID == nil || t.TeacherID == *teacherID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQrTokenRepo) DeactivateExpired(_ context.Context, now time.Time, teacherID *int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.Active && t.ExpiresAt.Before(now) && (teacherID == nil || t.TeacherID == *teacherID) {
			t.Active = false
			n++
		}
	}
	return n, nil
}

func (r *fakeQrTokenRepo) RunRedemption(ctx context.Context, fn func(ctx context.Context, tx repositories.RedemptionTx) error) error {
	r.redemption.Lock()
	defer r.redemption.Unlock()

	tx := &memRedemptionTx{store: r.memStore, deactivate: map[int64]bool{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range tx.deactivate {
		if t, ok := r.tokens[id]; ok {
			t.Active = false
		}
	}
	for _, rec := range tx.inserted {
		rec.ID = r.id()
		cp := *rec
		r.attendance[rec.ID] = &cp
	}
	return nil
}

// memRedemptionTx stages writes until RunRedemption commits them.
type memRedemptionTx struct {
	store      *memStore
	deactivate map[int64]bool
	inserted   []*models.AttendanceRecord
}

func (t *memRedemptionTx) LockToken(_ context.Context, value string) (*models.QrToken, error) {
	qt := t.store.token(value)
	if qt == nil {
		return nil, apperrors.NewResourceNotFoundError("qr token not found")
	}
	return qt, nil
}

func (t *memRedemptionTx) DeactivateToken(_ context.Context, id int64) error {
	t.deactivate[id] = true
	return nil
}

func (t *memRedemptionTx) InsertAttendanceIfAbsent(_ context.Context, rec *models.AttendanceRecord) (bool, error) {
	t.store.mu.Lock()
	exists := t.store.attendanceExists(rec.StudentID, rec.CourseID, rec.Date)
	t.store.mu.Unlock()
	if exists {
		return false, nil
	}
	for _, staged := range t.inserted {
		if staged.StudentID == rec.StudentID && staged.CourseID == rec.CourseID && staged.Date.Equal(rec.Date) {
			return false, nil
		}
	}
	t.inserted = append(t.inserted, rec)
	return true, nil
}

// stats

type fakeStatsRepo struct {
	since time.Time
}

func (r *fakeStatsRepo) Dashboard(_ context.Context, since time.Time) (*models.DashboardStats, error) {
	r.since = since
	return &models.DashboardStats{Students: 1}, nil
}

// recordingNotifier captures published check-ins.
type recordingNotifier struct {
	mu       sync.Mutex
	checkIns []models.CheckIn
}

func (n *recordingNotifier) PublishCheckIn(c models.CheckIn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.checkIns = append(n.checkIns, c)
}

// sequenceGenerator hands out predictable token values.
type sequenceGenerator struct {
	mu     sync.Mutex
	values []string
	n      int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if len(g.values) >= g.n {
		return g.values[g.n-1], nil
	}
	return fmt.Sprintf("token%04dabcdefghijklmno", g.n), nil
}

// fixture wires every service against one memStore.
type fixture struct {
	store      *memStore
	accounts   fakeAccountRepo
	students   fakeStudentRepo
	teachers   fakeTeacherRepo
	courses    fakeCourseRepo
	enrollment fakeEnrollmentRepo
	attendance fakeAttendanceRepo
	tokens     *fakeQrTokenRepo
	notifier   *recordingNotifier
	generator  *sequenceGenerator
	clock      *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store:      store,
		accounts:   fakeAccountRepo{store},
		students:   fakeStudentRepo{store},
		teachers:   fakeTeacherRepo{store},
		courses:    fakeCourseRepo{store},
		enrollment: fakeEnrollmentRepo{store},
		attendance: fakeAttendanceRepo{store},
		tokens:     &fakeQrTokenRepo{memStore: store},
		notifier:   &recordingNotifier{},
		generator:  &sequenceGenerator{},
		clock:      &testClock{now: time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)},
	}
}
