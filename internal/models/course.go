package models

import "time"

// CourseCategory classifies a course within a programme.
type CourseCategory string

const (
	CourseCategoryMajor    CourseCategory = "major"
	CourseCategoryMinor    CourseCategory = "minor"
	CourseCategoryOptional CourseCategory = "optional"
)

// Course represents a course offering available for scheduling.
type Course struct {
	ID        string         `db:"id" json:"id"`
	Code      string         `db:"code" json:"code"`
	Title     string         `db:"title" json:"title"`
	Category  CourseCategory `db:"category" json:"category"`
	Semester  int            `db:"semester" json:"semester"`
	Credits   int            `db:"credits" json:"credits"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	Category  string
	Semester  int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
