package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// WeekDays lists the lowercase availability day keys in scheduling order.
var WeekDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Faculty represents an instructor with declared expertise and weekly availability.
type Faculty struct {
	ID             string         `db:"id" json:"id"`
	Name           *string        `db:"name" json:"name,omitempty"`
	Department     string         `db:"department" json:"department"`
	Expertise      types.JSONText `db:"expertise" json:"expertise"`
	MaxWeeklyHours int            `db:"max_weekly_hours" json:"max_weekly_hours"`
	Availability   types.JSONText `db:"availability" json:"availability"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// DisplayName resolves the label used on generated sessions. Faculty without
// a name fall back to their department.
func (f *Faculty) DisplayName() string {
	if f.Name != nil && *f.Name != "" {
		return *f.Name
	}
	if f.Department != "" {
		return f.Department
	}
	return "Faculty"
}

// ExpertiseKeywords decodes the stored expertise list. Malformed payloads
// decode to an empty list rather than failing the scheduling run.
func (f *Faculty) ExpertiseKeywords() []string {
	if len(f.Expertise) == 0 {
		return nil
	}
	var keywords []string
	if err := json.Unmarshal(f.Expertise, &keywords); err != nil {
		return nil
	}
	return keywords
}

// WeeklyAvailability decodes the stored day→slots mapping.
func (f *Faculty) WeeklyAvailability() map[string][]string {
	if len(f.Availability) == 0 {
		return map[string][]string{}
	}
	var availability map[string][]string
	if err := json.Unmarshal(f.Availability, &availability); err != nil {
		return map[string][]string{}
	}
	return availability
}

// FacultyFilter captures filtering options for listing faculty.
type FacultyFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
