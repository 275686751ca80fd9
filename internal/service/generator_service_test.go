package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
	"github.com/Rakshithh-K/New-Hack/pkg/jobs"
)

type stubCourseSource struct {
	courses []models.Course
	err     error
}

func (s *stubCourseSource) ListAll(_ context.Context) ([]models.Course, error) {
	return s.courses, s.err
}

func (s *stubCourseSource) FindByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	byID := make(map[string]models.Course, len(s.courses))
	for _, course := range s.courses {
		byID[course.ID] = course
	}
	var found []models.Course
	for _, id := range ids {
		if course, ok := byID[id]; ok {
			found = append(found, course)
		}
	}
	return found, nil
}

type stubFacultySource struct {
	faculty []models.Faculty
	err     error
}

func (s *stubFacultySource) ListAll(_ context.Context) ([]models.Faculty, error) {
	return s.faculty, s.err
}

type stubRoomSource struct {
	rooms []models.Room
	err   error
}

func (s *stubRoomSource) ListAll(_ context.Context) ([]models.Room, error) {
	return s.rooms, s.err
}

type stubStudentSource struct {
	students []models.Student
}

func (s *stubStudentSource) ListAll(_ context.Context) ([]models.Student, error) {
	return s.students, nil
}

func (s *stubStudentSource) FindByID(_ context.Context, id string) (*models.Student, error) {
	for i := range s.students {
		if s.students[i].ID == id {
			return &s.students[i], nil
		}
	}
	return nil, errors.New("student not found")
}

type memTimetableStore struct {
	versions       []models.TimetableVersion
	studentRecords map[string]models.StudentTimetable
	upserts        int
}

func (m *memTimetableStore) CreateVersion(_ context.Context, version *models.TimetableVersion) error {
	m.versions = append(m.versions, *version)
	return nil
}

func (m *memTimetableStore) ListVersions(_ context.Context) ([]models.TimetableVersion, error) {
	return m.versions, nil
}

func (m *memTimetableStore) UpsertStudentTimetable(_ context.Context, record *models.StudentTimetable) error {
	if m.studentRecords == nil {
		m.studentRecords = make(map[string]models.StudentTimetable)
	}
	m.studentRecords[record.StudentID] = *record
	m.upserts++
	return nil
}

func (m *memTimetableStore) ListStudentTimetables(_ context.Context) ([]models.StudentTimetable, error) {
	var records []models.StudentTimetable
	for _, record := range m.studentRecords {
		records = append(records, record)
	}
	return records, nil
}

type stubDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (s *stubDispatcher) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// scriptedRand replays a fixed sequence of draws.
type scriptedRand struct {
	values []int
	idx    int
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.idx%len(r.values)]
	r.idx++
	return v % n
}

func testFaculty(id, name string, expertise []string, availability map[string][]string) models.Faculty {
	member := models.Faculty{ID: id, Department: "Engineering", MaxWeeklyHours: 40}
	if name != "" {
		member.Name = &name
	}
	if expertise != nil {
		raw, _ := json.Marshal(expertise)
		member.Expertise = raw
	}
	if availability != nil {
		raw, _ := json.Marshal(availability)
		member.Availability = raw
	}
	return member
}

func testCourse(id, title string) models.Course {
	return models.Course{ID: id, Code: id, Title: title, Category: models.CourseCategoryMajor, Semester: 1, Credits: 4}
}

func encodedSessions(t *testing.T, sessions []models.Session) []byte {
	t.Helper()
	data, err := models.EncodeSessions(sessions)
	require.NoError(t, err)
	return data
}

func newTestGenerator(
	courses *stubCourseSource,
	faculty *stubFacultySource,
	rooms *stubRoomSource,
	students *stubStudentSource,
	store *memTimetableStore,
	queue jobDispatcher,
	rng RandSource,
) *GeneratorService {
	if rng == nil {
		rng = &scriptedRand{}
	}
	return NewGeneratorService(courses, faculty, rooms, students, store, queue, nil, nil, zap.NewNop(), GeneratorConfig{Rand: rng})
}

func TestGenerateAssignsMatchedFacultyWithinAvailability(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Data Structures")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Rao", []string{"Data Structures"}, map[string][]string{
			"monday": {"09:00-10:00", "10:00-11:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 1)
	session := result.Timetable[0]
	assert.Equal(t, "Data Structures", session.Course)
	assert.Equal(t, "Dr. Rao", session.Faculty)
	assert.Equal(t, "f1", session.FacultyID)
	assert.Equal(t, "Mon", session.Day)
	assert.Equal(t, "09:00-10:00", session.Time)
	assert.Equal(t, models.SessionClean, session.Kind)
	assert.Equal(t, 1, result.TotalSessions)
	require.Len(t, store.versions, 1)
	assert.NotEmpty(t, result.VersionName)
}

func TestGenerateAvoidsDoubleBookingWithinRun(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{
		testCourse("c1", "Calculus I"),
		testCourse("c2", "Calculus II"),
	}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Iyer", []string{"Calculus"}, map[string][]string{
			"monday": {"09:00-10:00", "10:00-11:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 2)
	first, second := result.Timetable[0], result.Timetable[1]
	assert.Equal(t, "09:00-10:00", first.Time)
	assert.Equal(t, "10:00-11:00", second.Time)
	assert.NotEqual(t,
		first.Day+first.Time,
		second.Day+second.Time,
	)
	assert.Equal(t, models.SessionClean, first.Kind)
	assert.Equal(t, models.SessionClean, second.Kind)
}

func TestGenerateForcesAssignmentWhenSearchExhausted(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{
		testCourse("c1", "Calculus I"),
		testCourse("c2", "Calculus II"),
	}}
	// One matching slot only, so the second course must be forced.
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Iyer", []string{"Calculus"}, map[string][]string{
			"monday": {"09:00-10:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	rng := &scriptedRand{values: []int{0, 0, 0, 0, 0, 0}}
	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, rng)
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 2)
	assert.Equal(t, models.SessionClean, result.Timetable[0].Kind)
	forced := result.Timetable[1]
	assert.Equal(t, models.SessionForced, forced.Kind)
	assert.Equal(t, "f1", forced.FacultyID)
	assert.Contains(t, scheduleDays, forced.Day)
	assert.Contains(t, hourlyTimeSlots, forced.Time)
}

func TestGenerateMissingPoolsRejected(t *testing.T) {
	cases := []struct {
		name    string
		courses []models.Course
		faculty []models.Faculty
		rooms   []models.Room
	}{
		{name: "no courses", faculty: []models.Faculty{testFaculty("f1", "Dr. A", nil, nil)}, rooms: []models.Room{{ID: "r1"}}},
		{name: "no faculty", courses: []models.Course{testCourse("c1", "Physics")}, rooms: []models.Room{{ID: "r1"}}},
		{name: "no rooms", courses: []models.Course{testCourse("c1", "Physics")}, faculty: []models.Faculty{testFaculty("f1", "Dr. A", nil, nil)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &memTimetableStore{}
			svc := newTestGenerator(
				&stubCourseSource{courses: tc.courses},
				&stubFacultySource{faculty: tc.faculty},
				&stubRoomSource{rooms: tc.rooms},
				&stubStudentSource{},
				store,
				nil,
				nil,
			)
			_, err := svc.Generate(context.Background())
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrMissingData.Code, appErr.Code)
			assert.Equal(t, appErrors.ErrMissingData.Status, appErr.Status)
			assert.Empty(t, store.versions)
		})
	}
}

func TestGenerateMixedMatchingScenario(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{
		testCourse("c1", "Data Structures"),
		testCourse("c2", "Calculus I"),
		testCourse("c3", "Unknown Topic X"),
	}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Rao", []string{"Data Structures"}, map[string][]string{
			"monday": {"09:00-10:00", "10:00-11:00"},
		}),
		testFaculty("f2", "Dr. Iyer", []string{"Calculus"}, map[string][]string{
			"tuesday": {"11:00-12:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	// The unmatched course draws faculty index 0 and lands in Dr. Rao's next
	// free availability slot.
	rng := &scriptedRand{values: []int{0}}
	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, rng)
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 3)
	assert.Equal(t, "f1", result.Timetable[0].FacultyID)
	assert.Equal(t, "Mon", result.Timetable[0].Day)
	assert.Equal(t, "09:00-10:00", result.Timetable[0].Time)

	assert.Equal(t, "f2", result.Timetable[1].FacultyID)
	assert.Equal(t, "Tue", result.Timetable[1].Day)
	assert.Equal(t, "11:00-12:00", result.Timetable[1].Time)

	assert.Equal(t, "f1", result.Timetable[2].FacultyID)
	assert.Equal(t, "Mon", result.Timetable[2].Day)
	assert.Equal(t, "10:00-11:00", result.Timetable[2].Time)

	for _, session := range result.Timetable {
		assert.Equal(t, models.SessionClean, session.Kind)
	}
}

func TestGenerateForStudentOverwritesRecord(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{
		testCourse("c1", "Networks"),
		testCourse("c2", "Databases"),
	}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. A", []string{"Networks", "Databases"}, map[string][]string{
			"monday": {"09:00-10:00", "10:00-11:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	_, err := svc.GenerateForStudent(context.Background(), "s1", []string{"c1"})
	require.NoError(t, err)

	sessions, err := svc.GenerateForStudent(context.Background(), "s1", []string{"c2"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.upserts)

	// One record per student, reflecting the latest selection only.
	record := store.studentRecords["s1"]
	stored, err := record.Sessions()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Databases", stored[0].Course)
	assert.Equal(t, sessions, stored)
}

func TestGenerateUnmatchedCoursePicksRandomFaculty(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Unknown Topic X")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. A", []string{"Databases"}, map[string][]string{"monday": {"09:00-10:00"}}),
		testFaculty("f2", "Dr. B", []string{"Networks"}, map[string][]string{"tuesday": {"09:00-10:00"}}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}

	// First draw selects faculty index 1.
	rng := &scriptedRand{values: []int{1, 0}}
	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, &memTimetableStore{}, nil, rng)
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 1)
	session := result.Timetable[0]
	assert.Equal(t, "f2", session.FacultyID)
	assert.Equal(t, "Tue", session.Day)
	assert.Equal(t, models.SessionClean, session.Kind)
}

func TestGenerateGlobalModeSingleAttempt(t *testing.T) {
	// Two faculty match; the first is fully booked by an earlier course. Global
	// mode must not move on to the second match: the course is forced instead.
	courses := &stubCourseSource{courses: []models.Course{
		testCourse("c1", "Algorithms I"),
		testCourse("c2", "Algorithms II"),
	}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. A", []string{"Algorithms"}, map[string][]string{"monday": {"09:00-10:00"}}),
		testFaculty("f2", "Dr. B", []string{"Algorithms"}, map[string][]string{"friday": {"09:00-10:00"}}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, &memTimetableStore{}, nil, &scriptedRand{})
	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Timetable, 2)
	assert.Equal(t, models.SessionClean, result.Timetable[0].Kind)
	forced := result.Timetable[1]
	assert.Equal(t, models.SessionForced, forced.Kind)
	assert.Equal(t, "f1", forced.FacultyID)
}

func TestGenerateForStudentAvoidsPersistedSchedules(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Operating Systems")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Rao", []string{"Operating Systems"}, map[string][]string{
			"monday": {"09:00-10:00", "10:00-11:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}

	occupied := []models.Session{{
		CourseID: "other", Course: "Other", FacultyID: "f1", Faculty: "Dr. Rao",
		Day: "Mon", Time: "09:00-10:00", Kind: models.SessionClean,
	}}
	store := &memTimetableStore{
		versions: []models.TimetableVersion{{ID: "v1", VersionName: "v1", Data: encodedSessions(t, occupied)}},
	}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	sessions, err := svc.GenerateForStudent(context.Background(), "s1", []string{"c1"})
	require.NoError(t, err)

	require.Len(t, sessions, 1)
	assert.Equal(t, "Mon", sessions[0].Day)
	assert.Equal(t, "10:00-11:00", sessions[0].Time)
	assert.Equal(t, models.SessionClean, sessions[0].Kind)
	assert.Equal(t, 1, store.upserts)
	record, ok := store.studentRecords["s1"]
	require.True(t, ok)
	assert.Contains(t, record.VersionName, "student_s1_")
}

func TestGenerateForStudentIgnoresOwnPreviousRecord(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Operating Systems")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Rao", []string{"Operating Systems"}, map[string][]string{
			"monday": {"09:00-10:00"},
		}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}

	own := []models.Session{{
		CourseID: "c1", Course: "Operating Systems", FacultyID: "f1", Faculty: "Dr. Rao",
		Day: "Mon", Time: "09:00-10:00", Kind: models.SessionClean,
	}}
	store := &memTimetableStore{studentRecords: map[string]models.StudentTimetable{
		"s1": {ID: "st1", StudentID: "s1", VersionName: "student_s1_1", Data: encodedSessions(t, own)},
	}}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	sessions, err := svc.GenerateForStudent(context.Background(), "s1", []string{"c1"})
	require.NoError(t, err)

	// The student's own stale record must not block their only available slot.
	require.Len(t, sessions, 1)
	assert.Equal(t, "09:00-10:00", sessions[0].Time)
	assert.Equal(t, models.SessionClean, sessions[0].Kind)
}

func TestGenerateForStudentFallsBackToWholePool(t *testing.T) {
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Unknown Topic X")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. A", []string{"Databases"}, nil),
		testFaculty("f2", "Dr. B", []string{"Networks"}, map[string][]string{"wednesday": {"11:00-12:00"}}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	svc := newTestGenerator(courses, faculty, rooms, &stubStudentSource{}, store, nil, nil)
	sessions, err := svc.GenerateForStudent(context.Background(), "s1", []string{"c1"})
	require.NoError(t, err)

	// No expertise match, so the whole pool is searched and Dr. B's free slot
	// is used instead of forcing.
	require.Len(t, sessions, 1)
	assert.Equal(t, "f2", sessions[0].FacultyID)
	assert.Equal(t, "Wed", sessions[0].Day)
	assert.Equal(t, models.SessionClean, sessions[0].Kind)
}

func TestGenerateForStudentUnknownCoursesRejected(t *testing.T) {
	svc := newTestGenerator(
		&stubCourseSource{},
		&stubFacultySource{faculty: []models.Faculty{testFaculty("f1", "Dr. A", nil, nil)}},
		&stubRoomSource{rooms: []models.Room{{ID: "r1"}}},
		&stubStudentSource{},
		&memTimetableStore{},
		nil,
		nil,
	)
	_, err := svc.GenerateForStudent(context.Background(), "s1", []string{"missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingData.Code, appErrors.FromError(err).Code)
}

func TestRegenerateAllEnqueuesPerStudent(t *testing.T) {
	students := &stubStudentSource{students: []models.Student{
		{ID: "s1", Name: "Asha"},
		{ID: "s2", Name: "Vikram"},
	}}
	dispatcher := &stubDispatcher{}
	svc := newTestGenerator(&stubCourseSource{}, &stubFacultySource{}, &stubRoomSource{}, students, &memTimetableStore{}, dispatcher, nil)

	enqueued, err := svc.RegenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)
	require.Len(t, dispatcher.jobs, 2)
	assert.Equal(t, "regenerate_student_timetable", dispatcher.jobs[0].Type)
	assert.Equal(t, "s1", dispatcher.jobs[0].Payload)
	assert.Equal(t, "s2", dispatcher.jobs[1].Payload)
}

func TestHandleRegenerateJob(t *testing.T) {
	enrolled, _ := json.Marshal([]string{"c1"})
	students := &stubStudentSource{students: []models.Student{
		{ID: "s1", Name: "Asha", EnrolledCourses: enrolled},
	}}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Operating Systems")}}
	faculty := &stubFacultySource{faculty: []models.Faculty{
		testFaculty("f1", "Dr. Rao", []string{"Operating Systems"}, map[string][]string{"monday": {"09:00-10:00"}}),
	}}
	rooms := &stubRoomSource{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}}
	store := &memTimetableStore{}

	svc := newTestGenerator(courses, faculty, rooms, students, store, nil, nil)
	err := svc.HandleRegenerateJob(context.Background(), jobs.Job{ID: "j1", Type: "regenerate_student_timetable", Payload: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)

	err = svc.HandleRegenerateJob(context.Background(), jobs.Job{ID: "j2", Payload: 42})
	require.Error(t, err)
}

func TestMatchFacultyBidirectionalContainment(t *testing.T) {
	pool := []models.Faculty{
		testFaculty("f1", "Dr. A", []string{"Calculus"}, nil),
		testFaculty("f2", "Dr. B", []string{"Linear Algebra and Calculus I Advanced"}, nil),
		testFaculty("f3", "Dr. C", []string{"Databases"}, nil),
		testFaculty("f4", "Dr. D", []string{""}, nil),
	}

	matched := matchFaculty("Calculus I", pool)
	require.Len(t, matched, 2)
	assert.Equal(t, "f1", matched[0].ID)
	assert.Equal(t, "f2", matched[1].ID)

	assert.Empty(t, matchFaculty("Quantum Computing", pool))

	// Case-insensitive both ways.
	matched = matchFaculty("databases", pool)
	require.Len(t, matched, 1)
	assert.Equal(t, "f3", matched[0].ID)
}

func TestOccupancyLedger(t *testing.T) {
	ledger := newOccupancyLedger()
	assert.False(t, ledger.Claimed("f1", "Mon", "09:00-10:00"))

	ledger.Claim("f1", "Mon", "09:00-10:00")
	assert.True(t, ledger.Claimed("f1", "Mon", "09:00-10:00"))
	assert.False(t, ledger.Claimed("f1", "Mon", "10:00-11:00"))
	assert.False(t, ledger.Claimed("f2", "Mon", "09:00-10:00"))
	assert.Equal(t, 1, ledger.Len())

	// Records without a stable id fall back to the display name.
	ledger.SeedSessions([]models.Session{
		{Faculty: "Dr. Legacy", Day: "Tue", Time: "09:00-10:00"},
		{FacultyID: "f2", Faculty: "Dr. B", Day: "Wed", Time: "10:00-11:00"},
	})
	assert.True(t, ledger.Claimed("Dr. Legacy", "Tue", "09:00-10:00"))
	assert.True(t, ledger.Claimed("f2", "Wed", "10:00-11:00"))
	assert.Equal(t, 3, ledger.Len())
}
