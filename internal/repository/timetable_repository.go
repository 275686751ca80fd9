package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Rakshithh-K/New-Hack/internal/models"
)

const (
	versionColumns = "id, version_name, data, created_at"
	studentTTCols  = "id, student_id, version_name, data, created_at, updated_at"
)

// TimetableRepository stores generated timetables: append-only global
// versions and upserted per-student records.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// CreateVersion appends a new global timetable version.
func (r *TimetableRepository) CreateVersion(ctx context.Context, version *models.TimetableVersion) error {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO timetable_versions (id, version_name, data, created_at) VALUES (:id, :version_name, :data, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("create timetable version: %w", err)
	}
	return nil
}

// LatestVersion returns the most recent global version by creation time.
func (r *TimetableRepository) LatestVersion(ctx context.Context) (*models.TimetableVersion, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_versions ORDER BY created_at DESC LIMIT 1", versionColumns)
	var version models.TimetableVersion
	if err := r.db.GetContext(ctx, &version, query); err != nil {
		return nil, err
	}
	return &version, nil
}

// ListVersions returns every stored global version.
func (r *TimetableRepository) ListVersions(ctx context.Context) ([]models.TimetableVersion, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_versions ORDER BY created_at ASC", versionColumns)
	var versions []models.TimetableVersion
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return versions, nil
}

// UpsertStudentTimetable overwrites the student's record wholesale, creating
// it when absent.
func (r *TimetableRepository) UpsertStudentTimetable(ctx context.Context, record *models.StudentTimetable) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO student_timetables (id, student_id, version_name, data, created_at, updated_at)
		VALUES (:id, :student_id, :version_name, :data, :created_at, :updated_at)
		ON CONFLICT (student_id) DO UPDATE SET version_name = EXCLUDED.version_name, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert student timetable: %w", err)
	}
	return nil
}

// FindStudentTimetable loads the stored record for a student.
func (r *TimetableRepository) FindStudentTimetable(ctx context.Context, studentID string) (*models.StudentTimetable, error) {
	query := fmt.Sprintf("SELECT %s FROM student_timetables WHERE student_id = $1", studentTTCols)
	var record models.StudentTimetable
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListStudentTimetables returns every per-student record.
func (r *TimetableRepository) ListStudentTimetables(ctx context.Context) ([]models.StudentTimetable, error) {
	query := fmt.Sprintf("SELECT %s FROM student_timetables ORDER BY created_at ASC", studentTTCols)
	var records []models.StudentTimetable
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list student timetables: %w", err)
	}
	return records, nil
}

// DeleteStudentTimetable removes the stored record for a student.
func (r *TimetableRepository) DeleteStudentTimetable(ctx context.Context, studentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_timetables WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student timetable: %w", err)
	}
	return nil
}
