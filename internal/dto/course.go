package dto

// CreateCourseRequest registers a new course offering.
type CreateCourseRequest struct {
	Code     string `json:"code" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"required,oneof=major minor optional"`
	Semester int    `json:"semester" validate:"required,min=1,max=8"`
	Credits  int    `json:"credits" validate:"required,min=0"`
}

// UpdateCourseRequest modifies an existing course. Zero-valued fields are
// left untouched.
type UpdateCourseRequest struct {
	Code     *string `json:"code" validate:"omitempty,min=1"`
	Title    *string `json:"title" validate:"omitempty,min=1"`
	Category *string `json:"category" validate:"omitempty,oneof=major minor optional"`
	Semester *int    `json:"semester" validate:"omitempty,min=1,max=8"`
	Credits  *int    `json:"credits" validate:"omitempty,min=0"`
}
