package dto

// CreateFacultyRequest registers an instructor.
type CreateFacultyRequest struct {
	Name           string              `json:"name"`
	Department     string              `json:"department" validate:"required"`
	Expertise      []string            `json:"expertise"`
	MaxWeeklyHours int                 `json:"maxWeeklyHours" validate:"omitempty,min=1"`
	Availability   map[string][]string `json:"availability"`
}

// UpdateFacultyRequest modifies instructor details.
type UpdateFacultyRequest struct {
	Name           *string  `json:"name"`
	Department     *string  `json:"department" validate:"omitempty,min=1"`
	Expertise      []string `json:"expertise"`
	MaxWeeklyHours *int     `json:"maxWeeklyHours" validate:"omitempty,min=1"`
}

// UpdateAvailabilityRequest replaces a faculty member's weekly availability.
// Keys are lowercase day names, values ordered "HH:MM-HH:MM" slots.
type UpdateAvailabilityRequest struct {
	Availability map[string][]string `json:"availability" validate:"required"`
}
