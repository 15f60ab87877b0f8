package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/cache"
	"github.com/universys/universyslite/internal/pkg/email"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// In-memory stand-ins for the repositories. Each returns copies so services
// must Save to persist changes, as they must against Postgres.

var (
	staff        = models.Actor{UserID: 1, Role: models.RoleRegistrar}
	fixedNow     = time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	fixedClock   = func() time.Time { return fixedNow }
	testTermCode = "2025FA"
)

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type auditEntry struct {
	Actor      models.Actor
	Action     string
	EntityType string
	EntityID   int64
	Metadata   map[string]interface{}
}

type fakeAudit struct{ entries []auditEntry }

func (f *fakeAudit) Record(_ context.Context, actor models.Actor, action, entityType string, entityID int64, metadata map[string]interface{}) error {
	f.entries = append(f.entries, auditEntry{actor, action, entityType, entityID, metadata})
	return nil
}

func (f *fakeAudit) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// lockLog records row locks in the order they are taken, e.g. "section:1".
type lockLog struct{ taken []string }

func (l *lockLog) take(kind string, id int64) {
	if l == nil {
		return
	}
	l.taken = append(l.taken, fmt.Sprintf("%s:%d", kind, id))
}

// students

type fakeStudents struct {
	rows   map[int64]*models.Student
	nextID int64
	locks  *lockLog
}

func newFakeStudents() *fakeStudents { return &fakeStudents{rows: map[int64]*models.Student{}, nextID: 1} }

func (f *fakeStudents) add(s models.Student) *models.Student {
	if s.ID == 0 {
		s.ID = f.nextID
	}
	if s.ID >= f.nextID {
		f.nextID = s.ID + 1
	}
	if s.Status == "" {
		s.Status = models.StudentStatusActive
	}
	f.rows[s.ID] = &s
	return &s
}

func (f *fakeStudents) Create(_ context.Context, s *models.Student) error {
	for _, r := range f.rows {
		if r.StudentNumber == s.StudentNumber {
			return apperrors.ErrStudentNumberAlreadyExists
		}
		if r.Email == s.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	s.ID = f.nextID
	f.nextID++
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeStudents) GetByID(_ context.Context, id int64) (*models.Student, error) {
	s, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudents) GetForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	f.locks.take("student", id)
	return f.GetByID(ctx, id)
}

func (f *fakeStudents) GetByUserID(_ context.Context, userID int64) (*models.Student, error) {
	for _, s := range f.rows {
		if s.UserID != nil && *s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (f *fakeStudents) List(_ context.Context, filter models.StudentFilter, _ helpers.Page) ([]*models.Student, int64, error) {
	out := []*models.Student{}
	for _, s := range f.rows {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStudents) Update(_ context.Context, s *models.Student) error {
	if _, ok := f.rows[s.ID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeStudents) UpdateStatus(_ context.Context, id int64, status models.StudentStatus) error {
	s, ok := f.rows[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	s.Status = status
	return nil
}

// departments and users

type fakeDepartments struct {
	rows map[int64]*models.Department
	// inUse marks departments that still own students, instructors or courses
	inUse map[int64]bool
}

func (f *fakeDepartments) Create(_ context.Context, d *models.Department) error {
	var next int64 = 1
	for id, r := range f.rows {
		if r.Code == d.Code || r.Name == d.Name {
			return apperrors.ErrDepartmentAlreadyExists
		}
		if id >= next {
			next = id + 1
		}
	}
	d.ID = next
	cp := *d
	f.rows[d.ID] = &cp
	return nil
}

func (f *fakeDepartments) GetByID(_ context.Context, id int64) (*models.Department, error) {
	d, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrDepartmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDepartments) GetAll(_ context.Context) ([]*models.Department, error) {
	out := []*models.Department{}
	for _, d := range f.rows {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeDepartments) Update(_ context.Context, d *models.Department) error {
	for id, r := range f.rows {
		if id != d.ID && (r.Code == d.Code || r.Name == d.Name) {
			return apperrors.ErrDepartmentAlreadyExists
		}
	}
	if _, ok := f.rows[d.ID]; !ok {
		return apperrors.ErrDepartmentNotFound
	}
	cp := *d
	f.rows[d.ID] = &cp
	return nil
}

func (f *fakeDepartments) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrDepartmentNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeDepartments) HasRelations(_ context.Context, id int64) (bool, error) {
	return f.inUse[id], nil
}

type fakeUsers struct {
	rows       map[int64]*models.User
	lastLogins map[int64]time.Time
	nextID     int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[int64]*models.User{}, lastLogins: map[int64]time.Time{}, nextID: 100}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	for _, r := range f.rows {
		if r.Email == u.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	f.lastLogins[userID] = at
	return nil
}

func (f *fakeUsers) List(_ context.Context, _ helpers.Page) ([]*models.User, int64, error) {
	out := []*models.User{}
	for _, u := range f.rows {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

// terms

type fakeTerms struct {
	rows   map[int64]*models.Term
	nextID int64
}

func newFakeTerms() *fakeTerms { return &fakeTerms{rows: map[int64]*models.Term{}, nextID: 1} }

// openTerm has registration open at fixedNow and the drop deadline ahead of it.
func openTerm(id int64) models.Term {
	return models.Term{
		ID:                id,
		Code:              testTermCode,
		Name:              "Fall 2025",
		StartDate:         time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
		RegistrationStart: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		RegistrationEnd:   time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		DropDeadline:      time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTerms) add(t models.Term) {
	f.rows[t.ID] = &t
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
}

func (f *fakeTerms) Create(_ context.Context, t *models.Term) error {
	for _, r := range f.rows {
		if r.Code == t.Code {
			return apperrors.ErrTermAlreadyExists
		}
	}
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTerms) GetByID(_ context.Context, id int64) (*models.Term, error) {
	t, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrTermNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTerms) Current(_ context.Context, day time.Time) (*models.Term, error) {
	for _, t := range f.rows {
		if t.Contains(day) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.ErrTermNotFound
}

func (f *fakeTerms) List(_ context.Context, _ helpers.Page) ([]*models.Term, int64, error) {
	out := []*models.Term{}
	for _, t := range f.rows {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTerms) Update(_ context.Context, t *models.Term) error {
	if _, ok := f.rows[t.ID]; !ok {
		return apperrors.ErrTermNotFound
	}
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

// courses

type fakeCourses struct {
	rows        map[int64]*models.Course
	prereqs     map[int64][]models.Prerequisite
	withSection map[int64]bool
	nextID      int64
	gets        int
}

func newFakeCourses() *fakeCourses {
	return &fakeCourses{
		rows:        map[int64]*models.Course{},
		prereqs:     map[int64][]models.Prerequisite{},
		withSection: map[int64]bool{},
		nextID:      1,
	}
}

func (f *fakeCourses) add(c models.Course) *models.Course {
	f.rows[c.ID] = &c
	if c.ID >= f.nextID {
		f.nextID = c.ID + 1
	}
	return &c
}

func (f *fakeCourses) Create(_ context.Context, c *models.Course) error {
	for _, r := range f.rows {
		if r.Code == c.Code {
			return apperrors.ErrCourseAlreadyExists
		}
	}
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCourses) GetByID(_ context.Context, id int64) (*models.Course, error) {
	f.gets++
	c, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) List(_ context.Context, _ models.CourseFilter, _ helpers.Page) ([]*models.Course, int64, error) {
	out := []*models.Course{}
	for _, c := range f.rows {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCourses) Update(_ context.Context, c *models.Course) error {
	cp := *c
	cp.Prerequisites = nil
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCourses) HasSections(_ context.Context, id int64) (bool, error) {
	return f.withSection[id], nil
}

func (f *fakeCourses) Delete(_ context.Context, id int64) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeCourses) Prerequisites(_ context.Context, courseID int64) ([]models.Prerequisite, error) {
	out := []models.Prerequisite{}
	for _, p := range f.prereqs[courseID] {
		p.PrerequisiteCode = f.rows[p.PrerequisiteID].Code
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCourses) ReplacePrerequisites(_ context.Context, courseID int64, prereqs []models.Prerequisite) error {
	f.prereqs[courseID] = append([]models.Prerequisite(nil), prereqs...)
	return nil
}

func (f *fakeCourses) Requires(_ context.Context, courseID, prerequisiteID int64) (bool, error) {
	for _, p := range f.prereqs[courseID] {
		if p.PrerequisiteID == prerequisiteID {
			return true, nil
		}
	}
	return false, nil
}

// instructors and rooms

type fakeInstructors struct {
	rows  map[int64]*models.Instructor
	locks *lockLog
}

func (f *fakeInstructors) GetByID(_ context.Context, id int64) (*models.Instructor, error) {
	i, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrInstructorNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeInstructors) Create(_ context.Context, i *models.Instructor) error {
	var next int64 = 1
	for id, r := range f.rows {
		if r.Email == i.Email {
			return apperrors.ErrEmailAlreadyExists
		}
		if id >= next {
			next = id + 1
		}
	}
	i.ID = next
	cp := *i
	f.rows[i.ID] = &cp
	return nil
}

func (f *fakeInstructors) List(_ context.Context, departmentID *int64, _ helpers.Page) ([]*models.Instructor, int64, error) {
	out := []*models.Instructor{}
	for _, i := range f.rows {
		if departmentID != nil && i.DepartmentID != *departmentID {
			continue
		}
		cp := *i
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, int64(len(out)), nil
}

func (f *fakeInstructors) Update(_ context.Context, i *models.Instructor) error {
	if _, ok := f.rows[i.ID]; !ok {
		return apperrors.ErrInstructorNotFound
	}
	cp := *i
	f.rows[i.ID] = &cp
	return nil
}

func (f *fakeInstructors) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrInstructorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeInstructors) GetForUpdate(ctx context.Context, id int64) (*models.Instructor, error) {
	f.locks.take("instructor", id)
	return f.GetByID(ctx, id)
}

func (f *fakeInstructors) GetByUserID(_ context.Context, userID int64) (*models.Instructor, error) {
	for _, i := range f.rows {
		if i.UserID != nil && *i.UserID == userID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, apperrors.ErrInstructorNotFound
}

type fakeRooms struct {
	rows  map[int64]*models.Room
	locks *lockLog
}

func (f *fakeRooms) GetByID(_ context.Context, id int64) (*models.Room, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

// clash mirrors the unique (building, number) constraint
func (f *fakeRooms) clash(rm *models.Room) bool {
	for id, r := range f.rows {
		if id != rm.ID && r.Building == rm.Building && r.Number == rm.Number {
			return true
		}
	}
	return false
}

func (f *fakeRooms) Create(_ context.Context, rm *models.Room) error {
	if f.clash(rm) {
		return apperrors.ErrRoomAlreadyExists
	}
	var next int64 = 1
	for id := range f.rows {
		if id >= next {
			next = id + 1
		}
	}
	rm.ID = next
	cp := *rm
	f.rows[rm.ID] = &cp
	return nil
}

func (f *fakeRooms) List(_ context.Context, _ helpers.Page) ([]*models.Room, int64, error) {
	out := []*models.Room{}
	for _, r := range f.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label() < out[j].Label() })
	return out, int64(len(out)), nil
}

func (f *fakeRooms) Update(_ context.Context, rm *models.Room) error {
	if f.clash(rm) {
		return apperrors.ErrRoomAlreadyExists
	}
	if _, ok := f.rows[rm.ID]; !ok {
		return apperrors.ErrRoomNotFound
	}
	cp := *rm
	f.rows[rm.ID] = &cp
	return nil
}

func (f *fakeRooms) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrRoomNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRooms) GetForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	f.locks.take("room", id)
	return f.GetByID(ctx, id)
}

func (f *fakeRooms) Available(_ context.Context, _ int64, _, _, _, minCapacity int) ([]*models.Room, error) {
	out := []*models.Room{}
	for _, r := range f.rows {
		if r.IsActive && r.Capacity >= minCapacity {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capacity < out[j].Capacity })
	return out, nil
}

// sections

type fakeSections struct {
	rows    map[int64]*models.Section
	courses *fakeCourses
	nextID  int64
	locks   *lockLog
}

func newFakeSections(courses *fakeCourses) *fakeSections {
	return &fakeSections{rows: map[int64]*models.Section{}, courses: courses, nextID: 1}
}

func (f *fakeSections) add(s models.Section) *models.Section {
	if s.Status == "" {
		s.Status = models.SectionStatusOpen
	}
	if c, ok := f.courses.rows[s.CourseID]; ok {
		s.CourseCode = c.Code
		s.CourseTitle = c.Title
		s.Credits = c.Credits
	}
	s.TermCode = testTermCode
	f.rows[s.ID] = &s
	if s.ID >= f.nextID {
		f.nextID = s.ID + 1
	}
	return &s
}

func (f *fakeSections) Create(_ context.Context, s *models.Section) error {
	s.ID = f.nextID
	f.nextID++
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeSections) GetByID(_ context.Context, id int64) (*models.Section, error) {
	s, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrSectionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSections) GetForUpdate(ctx context.Context, id int64) (*models.Section, error) {
	f.locks.take("section", id)
	return f.GetByID(ctx, id)
}

func (f *fakeSections) List(_ context.Context, _ models.SectionFilter, _ helpers.Page) ([]*models.Section, int64, error) {
	out := []*models.Section{}
	for _, s := range f.rows {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSections) Save(_ context.Context, s *models.Section) error {
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

// enrollments

type fakeEnrollments struct {
	rows     map[int64]*models.Enrollment
	sections *fakeSections
	records  map[int64][]models.GradeRecord
	nextID   int64
}

func newFakeEnrollments(sections *fakeSections) *fakeEnrollments {
	return &fakeEnrollments{
		rows:     map[int64]*models.Enrollment{},
		sections: sections,
		records:  map[int64][]models.GradeRecord{},
		nextID:   1,
	}
}

func cloneEnrollment(e *models.Enrollment) *models.Enrollment {
	cp := *e
	if e.WaitlistPosition != nil {
		p := *e.WaitlistPosition
		cp.WaitlistPosition = &p
	}
	if e.Grade != nil {
		g := *e.Grade
		cp.Grade = &g
	}
	return &cp
}

func (f *fakeEnrollments) decorate(e *models.Enrollment) *models.Enrollment {
	if s, ok := f.sections.rows[e.SectionID]; ok {
		e.CourseID = s.CourseID
		e.CourseCode = s.CourseCode
		e.CourseTitle = s.CourseTitle
		e.Credits = s.Credits
		e.TermID = s.TermID
		e.TermCode = s.TermCode
		e.SectionNumber = s.SectionNumber
	}
	return e
}

// seed inserts a row as-is, for arranging section state in tests.
func (f *fakeEnrollments) seed(e models.Enrollment) *models.Enrollment {
	if e.ID == 0 {
		e.ID = f.nextID
	}
	if e.ID >= f.nextID {
		f.nextID = e.ID + 1
	}
	f.rows[e.ID] = cloneEnrollment(&e)
	return &e
}

func (f *fakeEnrollments) GetByID(_ context.Context, id int64) (*models.Enrollment, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return f.decorate(cloneEnrollment(e)), nil
}

func (f *fakeEnrollments) GetForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEnrollments) FindByStudentSection(_ context.Context, studentID, sectionID int64) (*models.Enrollment, error) {
	for _, e := range f.rows {
		if e.StudentID == studentID && e.SectionID == sectionID {
			return f.decorate(cloneEnrollment(e)), nil
		}
	}
	return nil, apperrors.ErrEnrollmentNotFound
}

func (f *fakeEnrollments) HasActiveForCourse(_ context.Context, studentID, courseID, termID int64) (bool, error) {
	for _, e := range f.rows {
		s := f.sections.rows[e.SectionID]
		if e.StudentID == studentID && e.Status.IsActive() && s.CourseID == courseID && s.TermID == termID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEnrollments) Create(_ context.Context, e *models.Enrollment) error {
	for _, r := range f.rows {
		if r.StudentID == e.StudentID && r.SectionID == e.SectionID {
			return apperrors.ErrAlreadyEnrolled
		}
	}
	e.ID = f.nextID
	f.nextID++
	f.rows[e.ID] = cloneEnrollment(e)
	return nil
}

func (f *fakeEnrollments) Save(_ context.Context, e *models.Enrollment) error {
	if _, ok := f.rows[e.ID]; !ok {
		return apperrors.ErrEnrollmentNotFound
	}
	f.rows[e.ID] = cloneEnrollment(e)
	return nil
}

func (f *fakeEnrollments) WaitlistHead(_ context.Context, sectionID int64) (*models.Enrollment, error) {
	var head *models.Enrollment
	for _, e := range f.rows {
		if e.SectionID != sectionID || e.Status != models.EnrollmentStatusWaitlisted {
			continue
		}
		if head == nil || *e.WaitlistPosition < *head.WaitlistPosition {
			head = e
		}
	}
	if head == nil {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return f.decorate(cloneEnrollment(head)), nil
}

func (f *fakeEnrollments) ShiftWaitlist(_ context.Context, sectionID int64, after int) error {
	for _, e := range f.rows {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusWaitlisted && *e.WaitlistPosition > after {
			p := *e.WaitlistPosition - 1
			e.WaitlistPosition = &p
		}
	}
	return nil
}

func (f *fakeEnrollments) DropAllActive(_ context.Context, sectionID int64, at time.Time) (int64, error) {
	var n int64
	for _, e := range f.rows {
		if e.SectionID == sectionID && e.Status.IsActive() {
			e.Status = models.EnrollmentStatusDropped
			e.WaitlistPosition = nil
			t := at
			e.DroppedAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollments) ByStudent(_ context.Context, studentID int64, termID *int64) ([]*models.Enrollment, error) {
	out := []*models.Enrollment{}
	for _, e := range f.rows {
		d := f.decorate(cloneEnrollment(e))
		if e.StudentID == studentID && (termID == nil || d.TermID == *termID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEnrollments) Roster(_ context.Context, sectionID int64) ([]*models.Enrollment, error) {
	out := []*models.Enrollment{}
	for _, e := range f.rows {
		if e.SectionID == sectionID && e.Status != models.EnrollmentStatusDropped {
			out = append(out, f.decorate(cloneEnrollment(e)))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEnrollments) GradeRecords(_ context.Context, studentID int64) ([]models.GradeRecord, error) {
	return f.records[studentID], nil
}

func (f *fakeEnrollments) sumCredits(studentID, termID int64, statuses ...models.EnrollmentStatus) int {
	total := 0
	for _, e := range f.rows {
		s := f.sections.rows[e.SectionID]
		if e.StudentID != studentID || s.TermID != termID {
			continue
		}
		for _, st := range statuses {
			if e.Status == st {
				total += s.Credits
			}
		}
	}
	return total
}

func (f *fakeEnrollments) EnrolledCredits(_ context.Context, studentID, termID int64) (int, error) {
	return f.sumCredits(studentID, termID, models.EnrollmentStatusEnrolled), nil
}

func (f *fakeEnrollments) BillableCredits(_ context.Context, studentID, termID int64) (int, error) {
	return f.sumCredits(studentID, termID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted), nil
}

// byStatus returns rows of a section in one status ordered by ID.
func (f *fakeEnrollments) byStatus(sectionID int64, status models.EnrollmentStatus) []*models.Enrollment {
	out := []*models.Enrollment{}
	for _, e := range f.rows {
		if e.SectionID == sectionID && e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// meetings

type fakeMeetings struct {
	rows        map[int64]*models.Meeting
	sections    *fakeSections
	enrollments *fakeEnrollments
	nextID      int64
}

func newFakeMeetings(sections *fakeSections, enrollments *fakeEnrollments) *fakeMeetings {
	return &fakeMeetings{rows: map[int64]*models.Meeting{}, sections: sections, enrollments: enrollments, nextID: 1}
}

func (f *fakeMeetings) add(m models.Meeting) {
	if m.ID == 0 {
		m.ID = f.nextID
	}
	if m.ID >= f.nextID {
		f.nextID = m.ID + 1
	}
	if s, ok := f.sections.rows[m.SectionID]; ok {
		m.TermID = s.TermID
	}
	f.rows[m.ID] = &m
}

func (f *fakeMeetings) list(keep func(m *models.Meeting, s *models.Section) bool) []*models.Meeting {
	out := []*models.Meeting{}
	for _, m := range f.rows {
		s := f.sections.rows[m.SectionID]
		if keep(m, s) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeMeetings) Create(_ context.Context, m *models.Meeting) error {
	m.ID = f.nextID
	f.nextID++
	cp := *m
	if s, ok := f.sections.rows[m.SectionID]; ok {
		cp.TermID = s.TermID
	}
	f.rows[m.ID] = &cp
	return nil
}

func (f *fakeMeetings) GetByID(_ context.Context, id int64) (*models.Meeting, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrMeetingNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeetings) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrMeetingNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeMeetings) BySection(_ context.Context, sectionID int64) ([]*models.Meeting, error) {
	return f.list(func(m *models.Meeting, _ *models.Section) bool { return m.SectionID == sectionID }), nil
}

func (f *fakeMeetings) ByRoom(_ context.Context, roomID, termID int64) ([]*models.Meeting, error) {
	return f.list(func(m *models.Meeting, s *models.Section) bool {
		return m.RoomID == roomID && s.TermID == termID && s.Status != models.SectionStatusCancelled
	}), nil
}

func (f *fakeMeetings) ByInstructor(_ context.Context, instructorID, termID int64) ([]*models.Meeting, error) {
	return f.list(func(_ *models.Meeting, s *models.Section) bool {
		return s.InstructorID != nil && *s.InstructorID == instructorID && s.TermID == termID &&
			s.Status != models.SectionStatusCancelled
	}), nil
}

func (f *fakeMeetings) ByStudent(_ context.Context, studentID, termID int64) ([]*models.Meeting, error) {
	return f.list(func(m *models.Meeting, s *models.Section) bool {
		if s.TermID != termID {
			return false
		}
		for _, e := range f.enrollments.rows {
			if e.StudentID == studentID && e.SectionID == m.SectionID && e.Status == models.EnrollmentStatusEnrolled {
				return true
			}
		}
		return false
	}), nil
}

// notifications, metrics and cache

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendWaitlistPromotion(msg email.WaitlistPromotion) error {
	return m.Called(msg).Error(0)
}

func (m *mockNotifier) SendInvoiceIssued(msg email.InvoiceIssued) error {
	return m.Called(msg).Error(0)
}

type fakeMetrics struct {
	outcomes   map[string]int
	promotions int
	invoices   int
	payments   int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{outcomes: map[string]int{}} }

func (f *fakeMetrics) Enrollment(outcome string) { f.outcomes[outcome]++ }
func (f *fakeMetrics) Promotions(n int)          { f.promotions += n }
func (f *fakeMetrics) Invoice()                  { f.invoices++ }
func (f *fakeMetrics) Payment()                  { f.payments++ }

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ cache.Cache = (*memCache)(nil)

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// invoices

type fakeInvoices struct {
	rows     map[int64]*models.Invoice
	payments map[int64][]models.Payment
	nextID   int64
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{rows: map[int64]*models.Invoice{}, payments: map[int64][]models.Payment{}, nextID: 1}
}

func (f *fakeInvoices) Create(_ context.Context, inv *models.Invoice) error {
	for _, r := range f.rows {
		if r.StudentID == inv.StudentID && r.TermID == inv.TermID && r.Status != models.InvoiceStatusVoid {
			return apperrors.ErrInvoiceAlreadyExists
		}
	}
	inv.ID = f.nextID
	f.nextID++
	for i := range inv.Lines {
		inv.Lines[i].ID = int64(i + 1)
		inv.Lines[i].InvoiceID = inv.ID
	}
	cp := *inv
	cp.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	f.rows[inv.ID] = &cp
	return nil
}

func (f *fakeInvoices) GetByID(_ context.Context, id int64) (*models.Invoice, error) {
	inv, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrInvoiceNotFound
	}
	cp := *inv
	cp.Lines, cp.Payments = nil, nil
	return &cp, nil
}

func (f *fakeInvoices) GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeInvoices) ByStudent(_ context.Context, studentID int64) ([]*models.Invoice, error) {
	out := []*models.Invoice{}
	for _, inv := range f.rows {
		if inv.StudentID == studentID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeInvoices) Lines(_ context.Context, invoiceID int64) ([]models.InvoiceLine, error) {
	return append([]models.InvoiceLine{}, f.rows[invoiceID].Lines...), nil
}

func (f *fakeInvoices) Payments(_ context.Context, invoiceID int64) ([]models.Payment, error) {
	return append([]models.Payment{}, f.payments[invoiceID]...), nil
}

func (f *fakeInvoices) AddPayment(_ context.Context, p *models.Payment) error {
	p.ID = int64(len(f.payments[p.InvoiceID]) + 1)
	f.payments[p.InvoiceID] = append(f.payments[p.InvoiceID], *p)
	return nil
}

func (f *fakeInvoices) SaveState(_ context.Context, inv *models.Invoice) error {
	row, ok := f.rows[inv.ID]
	if !ok {
		return apperrors.ErrInvoiceNotFound
	}
	row.AmountPaid = inv.AmountPaid
	row.Status = inv.Status
	return nil
}

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }

var defaultTestPage = helpers.NewPage(1, 20)
