package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
)

type stubStudentRepo struct {
	students    map[string]*models.Student
	courseArgs  map[string]types.JSONText
	createCalls int
}

func (s *stubStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	var all []models.Student
	for _, student := range s.students {
		all = append(all, *student)
	}
	return all, len(all), nil
}

func (s *stubStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *stubStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "s-new"
	if s.students == nil {
		s.students = make(map[string]*models.Student)
	}
	s.students[student.ID] = student
	s.createCalls++
	return nil
}

func (s *stubStudentRepo) UpdateCourses(_ context.Context, id string, courses types.JSONText) error {
	if s.courseArgs == nil {
		s.courseArgs = make(map[string]types.JSONText)
	}
	s.courseArgs[id] = courses
	s.students[id].EnrolledCourses = courses
	return nil
}

func (s *stubStudentRepo) Delete(_ context.Context, id string) error {
	delete(s.students, id)
	return nil
}

type stubScheduler struct {
	calls    []string
	sessions []models.Session
	err      error
}

func (s *stubScheduler) GenerateForStudent(_ context.Context, studentID string, _ []string) ([]models.Session, error) {
	s.calls = append(s.calls, studentID)
	if s.err != nil {
		return nil, s.err
	}
	return s.sessions, nil
}

func TestStudentServiceRegisterTriggersScheduling(t *testing.T) {
	repo := &stubStudentRepo{}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Networks")}}
	scheduler := &stubScheduler{sessions: []models.Session{{Course: "Networks", Day: "Mon", Time: "09:00-10:00"}}}
	svc := NewStudentService(repo, courses, scheduler, nil, nil, zap.NewNop())

	student, sessions, err := svc.Register(context.Background(), dto.RegisterStudentRequest{
		Name:      "Asha",
		Program:   "BTech CSE",
		Year:      2,
		CourseIDs: []string{"c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s-new", student.ID)
	assert.Equal(t, []string{"c1"}, student.CourseIDs())
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"s-new"}, scheduler.calls)
	assert.Equal(t, 1, repo.createCalls)
}

func TestStudentServiceRegisterRejectsUnknownCourse(t *testing.T) {
	repo := &stubStudentRepo{}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Networks")}}
	svc := NewStudentService(repo, courses, &stubScheduler{}, nil, nil, zap.NewNop())

	_, _, err := svc.Register(context.Background(), dto.RegisterStudentRequest{
		Name:      "Asha",
		Program:   "BTech CSE",
		Year:      2,
		CourseIDs: []string{"c1", "missing"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.createCalls)
}

func TestStudentServiceRegisterKeepsStudentWhenSchedulingFails(t *testing.T) {
	repo := &stubStudentRepo{}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Networks")}}
	scheduler := &stubScheduler{err: appErrors.Clone(appErrors.ErrMissingData, "missing data")}
	svc := NewStudentService(repo, courses, scheduler, nil, nil, zap.NewNop())

	student, _, err := svc.Register(context.Background(), dto.RegisterStudentRequest{
		Name:      "Asha",
		Program:   "BTech CSE",
		Year:      2,
		CourseIDs: []string{"c1"},
	})
	require.Error(t, err)
	require.NotNil(t, student)
	assert.Equal(t, 1, repo.createCalls)
}

func TestStudentServiceUpdateCoursesRegenerates(t *testing.T) {
	enrolled := types.JSONText(`["c1"]`)
	repo := &stubStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Name: "Asha", EnrolledCourses: enrolled},
	}}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Networks"), testCourse("c2", "Databases")}}
	scheduler := &stubScheduler{sessions: []models.Session{{Course: "Databases"}}}
	svc := NewStudentService(repo, courses, scheduler, nil, nil, zap.NewNop())

	sessions, err := svc.UpdateCourses(context.Background(), "s1", dto.UpdateStudentCoursesRequest{CourseIDs: []string{"c2"}})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"s1"}, scheduler.calls)
	assert.JSONEq(t, `["c2"]`, string(repo.courseArgs["s1"]))
}

func TestStudentServiceUpdateCoursesUnknownStudent(t *testing.T) {
	repo := &stubStudentRepo{students: map[string]*models.Student{}}
	courses := &stubCourseSource{courses: []models.Course{testCourse("c1", "Networks")}}
	svc := NewStudentService(repo, courses, &stubScheduler{}, nil, nil, zap.NewNop())

	_, err := svc.UpdateCourses(context.Background(), "missing", dto.UpdateStudentCoursesRequest{CourseIDs: []string{"c1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
