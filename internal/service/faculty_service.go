package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
)

// timeSlotPattern accepts "HH:MM-HH:MM" availability windows.
var timeSlotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
	UpdateAvailability(ctx context.Context, id string, availability types.JSONText) error
	Delete(ctx context.Context, id string) error
}

// FacultyService manages instructor records and their weekly availability.
type FacultyService struct {
	repo      facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService constructs a faculty service.
func NewFacultyService(repo facultyRepository, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, validator: validate, logger: logger}
}

// List returns faculty matching the filter.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	faculty, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return faculty, total, nil
}

// Get loads one faculty member.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.Faculty, error) {
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// Create registers an instructor.
func (s *FacultyService) Create(ctx context.Context, req dto.CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	if req.Availability != nil {
		if err := validateAvailability(req.Availability); err != nil {
			return nil, err
		}
	}

	faculty := &models.Faculty{
		Department:     req.Department,
		MaxWeeklyHours: req.MaxWeeklyHours,
	}
	if req.Name != "" {
		name := req.Name
		faculty.Name = &name
	}
	if len(req.Expertise) > 0 {
		raw, err := json.Marshal(req.Expertise)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode expertise")
		}
		faculty.Expertise = types.JSONText(raw)
	}
	if req.Availability != nil {
		raw, err := json.Marshal(req.Availability)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode availability")
		}
		faculty.Availability = types.JSONText(raw)
	}

	if err := s.repo.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	return faculty, nil
}

// Update modifies instructor details. Availability moves through
// UpdateAvailability only.
func (s *FacultyService) Update(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	faculty, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		faculty.Name = req.Name
	}
	if req.Department != nil {
		faculty.Department = *req.Department
	}
	if req.MaxWeeklyHours != nil {
		faculty.MaxWeeklyHours = *req.MaxWeeklyHours
	}
	if req.Expertise != nil {
		raw, err := json.Marshal(req.Expertise)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode expertise")
		}
		faculty.Expertise = types.JSONText(raw)
	}
	if err := s.repo.Update(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}
	return faculty, nil
}

// UpdateAvailability replaces a faculty member's weekly availability map.
func (s *FacultyService) UpdateAvailability(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateAvailability(req.Availability); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(req.Availability)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode availability")
	}
	if err := s.repo.UpdateAvailability(ctx, id, types.JSONText(raw)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}
	return s.Get(ctx, id)
}

// Delete removes a faculty member.
func (s *FacultyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	return nil
}

// validateAvailability checks day keys against the known week days and slot
// values against the HH:MM-HH:MM format.
func validateAvailability(availability map[string][]string) error {
	known := make(map[string]struct{}, len(models.WeekDays))
	for _, day := range models.WeekDays {
		known[day] = struct{}{}
	}
	for day, slots := range availability {
		if _, ok := known[day]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q in availability", day))
		}
		for _, slot := range slots {
			if !timeSlotPattern.MatchString(slot) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time slot %q for %s", slot, day))
			}
		}
	}
	return nil
}
