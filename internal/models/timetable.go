package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SessionKind distinguishes conflict-checked assignments from forced fallbacks.
type SessionKind string

const (
	// SessionClean marks a session placed through the normal availability search.
	SessionClean SessionKind = "clean"
	// SessionForced marks a session committed after the search was exhausted,
	// bypassing conflict checks.
	SessionForced SessionKind = "forced"
)

// Session is the atomic output unit of timetable generation. Course, faculty
// and room labels are denormalised at generation time; the stable ids travel
// alongside them so occupancy tracking never depends on display names.
type Session struct {
	CourseID  string      `json:"course_id"`
	Course    string      `json:"course"`
	FacultyID string      `json:"faculty_id"`
	Faculty   string      `json:"faculty"`
	RoomID    string      `json:"room_id"`
	Room      string      `json:"room"`
	Day       string      `json:"day"`
	Time      string      `json:"time"`
	Kind      SessionKind `json:"kind"`
}

// TimetableVersion is a globally generated timetable snapshot. The latest
// version by creation time is treated as canonical.
type TimetableVersion struct {
	ID          string         `db:"id" json:"id"`
	VersionName string         `db:"version_name" json:"version_name"`
	Data        types.JSONText `db:"data" json:"data"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Sessions decodes the stored session list.
func (t *TimetableVersion) Sessions() ([]Session, error) {
	return decodeSessions(t.Data)
}

// StudentTimetable is a per-student schedule record, overwritten wholesale on
// every regeneration.
type StudentTimetable struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	VersionName string         `db:"version_name" json:"version_name"`
	Data        types.JSONText `db:"data" json:"data"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Sessions decodes the stored session list.
func (t *StudentTimetable) Sessions() ([]Session, error) {
	return decodeSessions(t.Data)
}

// EncodeSessions marshals sessions for JSONB storage.
func EncodeSessions(sessions []Session) (types.JSONText, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}
	return types.JSONText(raw), nil
}

func decodeSessions(raw types.JSONText) ([]Session, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}
