package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/dto"
	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
	"github.com/Rakshithh-K/New-Hack/pkg/jobs"
)

// scheduleDays lists output day tokens in allocation order.
var scheduleDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// dayKeys maps output day tokens to the lowercase availability keys.
var dayKeys = map[string]string{
	"Mon": "monday",
	"Tue": "tuesday",
	"Wed": "wednesday",
	"Thu": "thursday",
	"Fri": "friday",
	"Sat": "saturday",
}

// hourlyTimeSlots is the fixed 09:00-17:00 grid used for fallback placement
// and for display rows.
var hourlyTimeSlots = []string{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"13:00-14:00",
	"14:00-15:00",
	"15:00-16:00",
	"16:00-17:00",
}

type generatorCourseSource interface {
	ListAll(ctx context.Context) ([]models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type generatorFacultySource interface {
	ListAll(ctx context.Context) ([]models.Faculty, error)
}

type generatorRoomSource interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type generatorStudentSource interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type timetableStore interface {
	CreateVersion(ctx context.Context, version *models.TimetableVersion) error
	ListVersions(ctx context.Context) ([]models.TimetableVersion, error)
	UpsertStudentTimetable(ctx context.Context, record *models.StudentTimetable) error
	ListStudentTimetables(ctx context.Context) ([]models.StudentTimetable, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// RandSource supplies random draws for faculty, room, day and slot picks.
// Tests inject a scripted source; production uses a seeded math/rand.
type RandSource interface {
	Intn(n int) int
}

// GeneratorConfig tunes the engine.
type GeneratorConfig struct {
	// Rand overrides the random source. Nil means a time-seeded source, or
	// RandomSeed when non-zero.
	Rand       RandSource
	RandomSeed int64
}

// GeneratorService is the timetable assignment engine. It greedily matches
// courses to (faculty, day, slot) triples against an occupancy ledger, with
// forced placement when a search is exhausted.
//
// A single mutex serialises generation calls so two concurrent runs cannot
// read the same occupancy state and double-book a faculty member.
type GeneratorService struct {
	courses    generatorCourseSource
	faculty    generatorFacultySource
	rooms      generatorRoomSource
	students   generatorStudentSource
	timetables timetableStore
	queue      jobDispatcher
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger

	mu  sync.Mutex
	rng RandSource
}

// NewGeneratorService wires the engine's dependencies.
func NewGeneratorService(
	courses generatorCourseSource,
	faculty generatorFacultySource,
	rooms generatorRoomSource,
	students generatorStudentSource,
	timetables timetableStore,
	queue jobDispatcher,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg GeneratorConfig,
) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := cfg.Rand
	if rng == nil {
		seed := cfg.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &GeneratorService{
		courses:    courses,
		faculty:    faculty,
		rooms:      rooms,
		students:   students,
		timetables: timetables,
		queue:      queue,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		rng:        rng,
	}
}

// Generate builds a global timetable over every course and appends it as a
// new version. Conflict tracking is scoped to this run only.
func (s *GeneratorService) Generate(ctx context.Context) (*dto.GenerateTimetableResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	faculty, err := s.faculty.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if err := ensurePools(courses, faculty, rooms); err != nil {
		return nil, err
	}

	ledger := newOccupancyLedger()
	sessions := make([]models.Session, 0, len(courses))
	for _, course := range courses {
		// Global mode gives each course exactly one faculty attempt: the
		// first expertise match, or a random pick when nothing matches.
		candidates := matchFaculty(course.Title, faculty)
		chosen := faculty[s.rng.Intn(len(faculty))]
		if len(candidates) > 0 {
			chosen = candidates[0]
		}
		sessions = append(sessions, s.allocate(course, []models.Faculty{chosen}, chosen, rooms, ledger))
	}

	versionName := fmt.Sprintf("v%d", time.Now().UnixMilli())
	data, err := models.EncodeSessions(sessions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable")
	}
	version := &models.TimetableVersion{VersionName: versionName, Data: data}
	if err := s.timetables.CreateVersion(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable version")
	}

	s.finishRun(ctx, "global", sessions, start)
	return &dto.GenerateTimetableResponse{
		VersionName:   versionName,
		TotalSessions: len(sessions),
		Timetable:     sessions,
	}, nil
}

// GenerateForStudent builds a timetable for one student's course selection,
// avoiding every (faculty, day, slot) already claimed by persisted schedules,
// and upserts the student's record wholesale.
func (s *GeneratorService) GenerateForStudent(ctx context.Context, studentID string, courseIDs []string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	faculty, err := s.faculty.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if err := ensurePools(courses, faculty, rooms); err != nil {
		return nil, err
	}

	ledger, err := s.seedLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(courses))
	for _, course := range courses {
		// Incremental mode searches the full candidate list, and the whole
		// pool when expertise matches nothing.
		candidates := matchFaculty(course.Title, faculty)
		if len(candidates) == 0 {
			candidates = faculty
		}
		sessions = append(sessions, s.allocate(course, candidates, faculty[0], rooms, ledger))
	}

	data, err := models.EncodeSessions(sessions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable")
	}
	record := &models.StudentTimetable{
		StudentID:   studentID,
		VersionName: fmt.Sprintf("student_%s_%d", studentID, time.Now().UnixMilli()),
		Data:        data,
	}
	if err := s.timetables.UpsertStudentTimetable(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store student timetable")
	}

	s.finishRun(ctx, "student", sessions, start)
	return sessions, nil
}

// RegenerateAll enqueues one regeneration job per registered student.
func (s *GeneratorService) RegenerateAll(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "job queue unavailable")
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	enqueued := 0
	for _, student := range students {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "regenerate_student_timetable",
			Payload: student.ID,
		}
		if err := s.queue.Enqueue(job); err != nil {
			return enqueued, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue regeneration job")
		}
		enqueued++
	}
	return enqueued, nil
}

// HandleRegenerateJob processes one queued per-student regeneration.
func (s *GeneratorService) HandleRegenerateJob(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		return fmt.Errorf("regenerate job %s: payload is not a student id", job.ID)
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("regenerate job %s: load student: %w", job.ID, err)
	}
	courseIDs := student.CourseIDs()
	if len(courseIDs) == 0 {
		s.logger.Info("student has no enrolled courses, skipping regeneration", zap.String("student_id", studentID))
		return nil
	}
	_, err = s.GenerateForStudent(ctx, studentID, courseIDs)
	return err
}

// seedLedger claims every (faculty, day, slot) used by persisted schedules:
// all global versions plus every other student's record.
func (s *GeneratorService) seedLedger(ctx context.Context, excludeStudentID string) (*occupancyLedger, error) {
	ledger := newOccupancyLedger()

	versions, err := s.timetables.ListVersions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable versions")
	}
	for i := range versions {
		sessions, err := versions[i].Sessions()
		if err != nil {
			s.logger.Warn("skipping undecodable timetable version", zap.String("version", versions[i].VersionName), zap.Error(err))
			continue
		}
		ledger.SeedSessions(sessions)
	}

	records, err := s.timetables.ListStudentTimetables(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student timetables")
	}
	for i := range records {
		if records[i].StudentID == excludeStudentID {
			continue
		}
		sessions, err := records[i].Sessions()
		if err != nil {
			s.logger.Warn("skipping undecodable student timetable", zap.String("student_id", records[i].StudentID), zap.Error(err))
			continue
		}
		ledger.SeedSessions(sessions)
	}

	return ledger, nil
}

// allocate walks candidates in order, days in fixed order, and each
// candidate's availability in stored order, committing the first unclaimed
// triple. When the whole search is exhausted it commits a forced session on
// the fallback faculty with a random day and hourly slot. Forced sessions are
// claimed in the ledger as well so later runs can see them.
func (s *GeneratorService) allocate(
	course models.Course,
	candidates []models.Faculty,
	fallback models.Faculty,
	rooms []models.Room,
	ledger *occupancyLedger,
) models.Session {
	for i := range candidates {
		member := &candidates[i]
		availability := member.WeeklyAvailability()
		for _, day := range scheduleDays {
			for _, slot := range availability[dayKeys[day]] {
				if ledger.Claimed(member.ID, day, slot) {
					continue
				}
				ledger.Claim(member.ID, day, slot)
				return s.newSession(course, member, rooms, day, slot, models.SessionClean)
			}
		}
	}

	day := scheduleDays[s.rng.Intn(len(scheduleDays))]
	slot := hourlyTimeSlots[s.rng.Intn(len(hourlyTimeSlots))]
	ledger.Claim(fallback.ID, day, slot)
	s.logger.Warn("no free slot found, forcing assignment",
		zap.String("course", course.Title),
		zap.String("faculty", fallback.DisplayName()),
		zap.String("day", day),
		zap.String("time", slot),
	)
	return s.newSession(course, &fallback, rooms, day, slot, models.SessionForced)
}

func (s *GeneratorService) newSession(course models.Course, member *models.Faculty, rooms []models.Room, day, slot string, kind models.SessionKind) models.Session {
	room := rooms[s.rng.Intn(len(rooms))]
	return models.Session{
		CourseID:  course.ID,
		Course:    course.Title,
		FacultyID: member.ID,
		Faculty:   member.DisplayName(),
		RoomID:    room.ID,
		Room:      room.Name,
		Day:       day,
		Time:      slot,
		Kind:      kind,
	}
}

func (s *GeneratorService) finishRun(ctx context.Context, mode string, sessions []models.Session, start time.Time) {
	forced := 0
	for _, session := range sessions {
		if session.Kind == models.SessionForced {
			forced++
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(mode, len(sessions), forced, time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "timetable:*"); err != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
		}
	}
	s.logger.Info("timetable generated",
		zap.String("mode", mode),
		zap.Int("sessions", len(sessions)),
		zap.Int("forced", forced),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func ensurePools(courses []models.Course, faculty []models.Faculty, rooms []models.Room) error {
	if len(courses) == 0 || len(faculty) == 0 || len(rooms) == 0 {
		return appErrors.Clone(appErrors.ErrMissingData,
			fmt.Sprintf("missing data - courses: %d, faculty: %d, rooms: %d", len(courses), len(faculty), len(rooms)))
	}
	return nil
}

// matchFaculty filters the pool by bidirectional case-insensitive containment
// between the course title and each declared expertise keyword, preserving
// pool order. Loose on purpose: "Calculus" matches "Calculus I".
func matchFaculty(title string, pool []models.Faculty) []models.Faculty {
	lowered := strings.ToLower(title)
	var matched []models.Faculty
	for _, member := range pool {
		for _, keyword := range member.ExpertiseKeywords() {
			kw := strings.ToLower(keyword)
			if kw == "" {
				continue
			}
			if strings.Contains(lowered, kw) || strings.Contains(kw, lowered) {
				matched = append(matched, member)
				break
			}
		}
	}
	return matched
}

// --- Occupancy ledger ---

// occupancyLedger tracks claimed (faculty, day, slot) triples within one
// scheduling scope. Keys always use the stable faculty id, never the display
// name.
type occupancyLedger struct {
	claimed map[string]struct{}
}

func newOccupancyLedger() *occupancyLedger {
	return &occupancyLedger{claimed: make(map[string]struct{})}
}

func ledgerKey(facultyID, day, slot string) string {
	return facultyID + "|" + day + "|" + slot
}

func (l *occupancyLedger) Claimed(facultyID, day, slot string) bool {
	_, ok := l.claimed[ledgerKey(facultyID, day, slot)]
	return ok
}

func (l *occupancyLedger) Claim(facultyID, day, slot string) {
	l.claimed[ledgerKey(facultyID, day, slot)] = struct{}{}
}

// SeedSessions claims the slots of previously persisted sessions. Records
// predating stable ids fall back to the denormalised display name.
func (l *occupancyLedger) SeedSessions(sessions []models.Session) {
	for _, session := range sessions {
		identity := session.FacultyID
		if identity == "" {
			identity = session.Faculty
		}
		l.Claim(identity, session.Day, session.Time)
	}
}

// Len reports how many triples are claimed.
func (l *occupancyLedger) Len() int {
	return len(l.claimed)
}
