package dto

// RegisterStudentRequest creates a student record with an initial course
// selection. Registration triggers incremental timetable generation.
type RegisterStudentRequest struct {
	Name      string   `json:"name" validate:"required"`
	Program   string   `json:"program" validate:"required"`
	Year      int      `json:"year" validate:"required,min=1,max=8"`
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}

// UpdateStudentCoursesRequest replaces a student's course selection and
// regenerates their timetable.
type UpdateStudentCoursesRequest struct {
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}
