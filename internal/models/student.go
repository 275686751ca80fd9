package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Student represents a registered student and their course selection.
type Student struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Program         string         `db:"program" json:"program"`
	Year            int            `db:"year" json:"year"`
	EnrolledCourses types.JSONText `db:"enrolled_courses" json:"enrolled_courses"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseIDs decodes the enrolled course id list.
func (s *Student) CourseIDs() []string {
	if len(s.EnrolledCourses) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(s.EnrolledCourses, &ids); err != nil {
		return nil
	}
	return ids
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	Program   string
	Year      int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
