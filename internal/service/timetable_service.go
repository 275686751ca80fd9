package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
)

type timetableReader interface {
	LatestVersion(ctx context.Context) (*models.TimetableVersion, error)
	FindStudentTimetable(ctx context.Context, studentID string) (*models.StudentTimetable, error)
}

// TimetableService serves stored timetables and their display-grid form.
type TimetableService struct {
	timetables timetableReader
	cache      *CacheService
	logger     *zap.Logger
}

// NewTimetableService constructs the read-side timetable service.
func NewTimetableService(timetables timetableReader, cache *CacheService, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{timetables: timetables, cache: cache, logger: logger}
}

// Latest returns the sessions of the most recent global version.
func (s *TimetableService) Latest(ctx context.Context) ([]models.Session, string, error) {
	const cacheKey = "timetable:latest"
	var cached dto.GenerateTimetableResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached.Timetable, cached.VersionName, nil
	}

	version, err := s.timetables.LatestVersion(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no timetable found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest timetable")
	}
	sessions, err := version.Sessions()
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode latest timetable")
	}

	_ = s.cache.Set(ctx, cacheKey, dto.GenerateTimetableResponse{
		VersionName:   version.VersionName,
		TotalSessions: len(sessions),
		Timetable:     sessions,
	}, 0)
	return sessions, version.VersionName, nil
}

// LatestGrid returns the latest global timetable as a display grid.
func (s *TimetableService) LatestGrid(ctx context.Context) ([]dto.TimetableGridRow, error) {
	sessions, _, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return buildGrid(sessions), nil
}

// StudentGrid returns the stored student timetable as a display grid. A
// student without a stored record gets an empty grid, not an error.
func (s *TimetableService) StudentGrid(ctx context.Context, studentID string) ([]dto.TimetableGridRow, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	cacheKey := "timetable:student:" + studentID
	var cached []dto.TimetableGridRow
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	record, err := s.timetables.FindStudentTimetable(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return buildGrid(nil), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student timetable")
	}
	sessions, err := record.Sessions()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode student timetable")
	}

	grid := buildGrid(sessions)
	_ = s.cache.Set(ctx, cacheKey, grid, 0)
	return grid, nil
}

// StudentSessions returns the raw stored session list for a student.
func (s *TimetableService) StudentSessions(ctx context.Context, studentID string) ([]models.Session, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	record, err := s.timetables.FindStudentTimetable(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable found for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student timetable")
	}
	sessions, err := record.Sessions()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode student timetable")
	}
	return sessions, nil
}

// buildGrid renders sessions into fixed time-slot rows across the six
// weekdays. Cells match sessions by exact day and time string.
func buildGrid(sessions []models.Session) []dto.TimetableGridRow {
	rows := make([]dto.TimetableGridRow, 0, len(hourlyTimeSlots))
	for _, slot := range hourlyTimeSlots {
		row := dto.TimetableGridRow{Time: slot}
		for _, day := range scheduleDays {
			label := cellLabel(sessions, day, slot)
			switch day {
			case "Mon":
				row.Monday = label
			case "Tue":
				row.Tuesday = label
			case "Wed":
				row.Wednesday = label
			case "Thu":
				row.Thursday = label
			case "Fri":
				row.Friday = label
			case "Sat":
				row.Saturday = label
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func cellLabel(sessions []models.Session, day, slot string) *string {
	for _, session := range sessions {
		if session.Day == day && session.Time == slot {
			label := fmt.Sprintf("%s (%s)", session.Course, session.Faculty)
			return &label
		}
	}
	return nil
}
