package dto

import "github.com/Rakshithh-K/New-Hack/internal/models"

// GenerateTimetableResponse returns a freshly generated global timetable.
type GenerateTimetableResponse struct {
	VersionName   string           `json:"versionName"`
	TotalSessions int              `json:"totalSessions"`
	Timetable     []models.Session `json:"timetable"`
}

// GenerateStudentTimetableRequest triggers incremental generation for a
// student. CourseIDs defaults to the student's enrolled courses when empty.
type GenerateStudentTimetableRequest struct {
	CourseIDs []string `json:"courseIds" validate:"omitempty,dive,required"`
}

// TimetableGridRow is one display row: a time slot across all weekdays.
// Cells hold "Course (Faculty)" labels, nil when the slot is free.
type TimetableGridRow struct {
	Time      string  `json:"time"`
	Monday    *string `json:"monday"`
	Tuesday   *string `json:"tuesday"`
	Wednesday *string `json:"wednesday"`
	Thursday  *string `json:"thursday"`
	Friday    *string `json:"friday"`
	Saturday  *string `json:"saturday"`
}

// RegenerateAllResponse reports how many per-student jobs were enqueued.
type RegenerateAllResponse struct {
	Enqueued int `json:"enqueued"`
}
