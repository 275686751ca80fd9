package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateCourses(ctx context.Context, id string, courses types.JSONText) error
	Delete(ctx context.Context, id string) error
}

type studentCourseSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type studentScheduler interface {
	GenerateForStudent(ctx context.Context, studentID string, courseIDs []string) ([]models.Session, error)
}

type studentTimetableStore interface {
	DeleteStudentTimetable(ctx context.Context, studentID string) error
}

// StudentService manages student records. Registration and course changes
// trigger incremental timetable generation for the affected student.
type StudentService struct {
	repo       studentRepository
	courses    studentCourseSource
	scheduler  studentScheduler
	timetables studentTimetableStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs a student service.
func NewStudentService(repo studentRepository, courses studentCourseSource, scheduler studentScheduler, timetables studentTimetableStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, scheduler: scheduler, timetables: timetables, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Register creates a student and immediately schedules their selection. The
// student record survives even when scheduling fails; the timetable can be
// regenerated later.
func (s *StudentService) Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.Student, []models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.verifyCourses(ctx, req.CourseIDs); err != nil {
		return nil, nil, err
	}

	raw, err := json.Marshal(req.CourseIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode course selection")
	}
	student := &models.Student{
		Name:            req.Name,
		Program:         req.Program,
		Year:            req.Year,
		EnrolledCourses: types.JSONText(raw),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	sessions, err := s.scheduler.GenerateForStudent(ctx, student.ID, req.CourseIDs)
	if err != nil {
		s.logger.Error("initial timetable generation failed",
			zap.String("student_id", student.ID),
			zap.Error(err),
		)
		return student, nil, err
	}
	return student, sessions, nil
}

// UpdateCourses replaces a student's course selection and regenerates their
// timetable against the new selection.
func (s *StudentService) UpdateCourses(ctx context.Context, id string, req dto.UpdateStudentCoursesRequest) ([]models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course selection")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.verifyCourses(ctx, req.CourseIDs); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(req.CourseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode course selection")
	}
	if err := s.repo.UpdateCourses(ctx, id, types.JSONText(raw)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course selection")
	}

	return s.scheduler.GenerateForStudent(ctx, id, req.CourseIDs)
}

// Delete removes a student along with their stored timetable.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if s.timetables != nil {
		if err := s.timetables.DeleteStudentTimetable(ctx, id); err != nil {
			s.logger.Warn("failed to delete student timetable record", zap.String("student_id", id), zap.Error(err))
		}
	}
	return nil
}

// verifyCourses rejects selections referencing unknown course ids.
func (s *StudentService) verifyCourses(ctx context.Context, ids []string) error {
	found, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify course selection")
	}
	if len(found) != len(ids) {
		known := make(map[string]struct{}, len(found))
		for _, course := range found {
			known[course.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course id %q", id))
			}
		}
	}
	return nil
}
