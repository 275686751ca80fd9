package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/service"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
	"github.com/Rakshithh-K/New-Hack/pkg/response"
)

// TimetableHandler exposes generation and timetable read endpoints.
type TimetableHandler struct {
	generator  *service.GeneratorService
	timetables *service.TimetableService
	students   *service.StudentService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(generator *service.GeneratorService, timetables *service.TimetableService, students *service.StudentService) *TimetableHandler {
	return &TimetableHandler{generator: generator, timetables: timetables, students: students}
}

// Generate godoc
// @Summary Generate a new global timetable version
// @Tags Timetable
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	result, err := h.generator.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Latest godoc
// @Summary Get the latest global timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/latest [get]
func (h *TimetableHandler) Latest(c *gin.Context) {
	sessions, versionName, err := h.timetables.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.GenerateTimetableResponse{
		VersionName:   versionName,
		TotalSessions: len(sessions),
		Timetable:     sessions,
	}, nil)
}

// LatestGrid godoc
// @Summary Get the latest global timetable as a display grid
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/latest/grid [get]
func (h *TimetableHandler) LatestGrid(c *gin.Context) {
	grid, err := h.timetables.LatestGrid(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// GenerateForStudent godoc
// @Summary Generate a timetable for one student
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.GenerateStudentTimetableRequest false "Course selection override"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/timetable [post]
func (h *TimetableHandler) GenerateForStudent(c *gin.Context) {
	studentID := c.Param("id")

	var req dto.GenerateStudentTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	courseIDs := req.CourseIDs
	if len(courseIDs) == 0 {
		student, err := h.students.Get(c.Request.Context(), studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		courseIDs = student.CourseIDs()
	}
	if len(courseIDs) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student has no enrolled courses"))
		return
	}

	sessions, err := h.generator.GenerateForStudent(c.Request.Context(), studentID, courseIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"timetable": sessions})
}

// StudentGrid godoc
// @Summary Get a student's timetable as a display grid
// @Tags Timetable
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/timetable [get]
func (h *TimetableHandler) StudentGrid(c *gin.Context) {
	grid, err := h.timetables.StudentGrid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// RegenerateAll godoc
// @Summary Enqueue regeneration for every registered student
// @Tags Timetable
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /timetable/regenerate [post]
func (h *TimetableHandler) RegenerateAll(c *gin.Context) {
	enqueued, err := h.generator.RegenerateAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, dto.RegenerateAllResponse{Enqueued: enqueued}, nil)
}
