package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rakshithh-K/New-Hack/internal/models"
	appErrors "github.com/Rakshithh-K/New-Hack/pkg/errors"
)

type stubTimetableReader struct {
	version        *models.TimetableVersion
	versionErr     error
	record         *models.StudentTimetable
	recordErr      error
	latestCalls    int
	findStudCalls  int
	lastStudentArg string
}

func (s *stubTimetableReader) LatestVersion(_ context.Context) (*models.TimetableVersion, error) {
	s.latestCalls++
	if s.versionErr != nil {
		return nil, s.versionErr
	}
	return s.version, nil
}

func (s *stubTimetableReader) FindStudentTimetable(_ context.Context, studentID string) (*models.StudentTimetable, error) {
	s.findStudCalls++
	s.lastStudentArg = studentID
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	return s.record, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func TestTimetableServiceLatestCaching(t *testing.T) {
	sessions := []models.Session{{
		CourseID: "c1", Course: "Data Structures", FacultyID: "f1", Faculty: "Dr. Rao",
		RoomID: "r1", Room: "Room 101", Day: "Mon", Time: "09:00-10:00", Kind: models.SessionClean,
	}}
	data, err := models.EncodeSessions(sessions)
	require.NoError(t, err)

	reader := &stubTimetableReader{version: &models.TimetableVersion{ID: "v1", VersionName: "v100", Data: data}}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewTimetableService(reader, cacheSvc, zap.NewNop())

	ctx := context.Background()
	got, versionName, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v100", versionName)
	assert.Equal(t, sessions, got)
	assert.Equal(t, 1, reader.latestCalls)

	// Second read is served from cache.
	gotCached, versionName2, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v100", versionName2)
	assert.Equal(t, got, gotCached)
	assert.Equal(t, 1, reader.latestCalls)
}

func TestTimetableServiceLatestNotFound(t *testing.T) {
	reader := &stubTimetableReader{versionErr: sql.ErrNoRows}
	svc := NewTimetableService(reader, nil, zap.NewNop())

	_, _, err := svc.Latest(context.Background())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTimetableServiceLatestGrid(t *testing.T) {
	sessions := []models.Session{
		{Course: "Data Structures", Faculty: "Dr. Rao", Day: "Mon", Time: "09:00-10:00"},
		{Course: "Calculus I", Faculty: "Dr. Iyer", Day: "Sat", Time: "16:00-17:00"},
	}
	data, err := models.EncodeSessions(sessions)
	require.NoError(t, err)
	reader := &stubTimetableReader{version: &models.TimetableVersion{VersionName: "v1", Data: data}}
	svc := NewTimetableService(reader, nil, zap.NewNop())

	grid, err := svc.LatestGrid(context.Background())
	require.NoError(t, err)
	require.Len(t, grid, len(hourlyTimeSlots))

	assert.Equal(t, "09:00-10:00", grid[0].Time)
	require.NotNil(t, grid[0].Monday)
	assert.Equal(t, "Data Structures (Dr. Rao)", *grid[0].Monday)
	assert.Nil(t, grid[0].Tuesday)

	last := grid[len(grid)-1]
	assert.Equal(t, "16:00-17:00", last.Time)
	require.NotNil(t, last.Saturday)
	assert.Equal(t, "Calculus I (Dr. Iyer)", *last.Saturday)
}

func TestTimetableServiceStudentGridEmptyWhenAbsent(t *testing.T) {
	reader := &stubTimetableReader{recordErr: sql.ErrNoRows}
	svc := NewTimetableService(reader, nil, zap.NewNop())

	grid, err := svc.StudentGrid(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, grid, len(hourlyTimeSlots))
	for _, row := range grid {
		assert.Nil(t, row.Monday)
		assert.Nil(t, row.Tuesday)
		assert.Nil(t, row.Wednesday)
		assert.Nil(t, row.Thursday)
		assert.Nil(t, row.Friday)
		assert.Nil(t, row.Saturday)
	}
	assert.Equal(t, "s1", reader.lastStudentArg)
}

func TestTimetableServiceStudentGridRequiresID(t *testing.T) {
	svc := NewTimetableService(&stubTimetableReader{}, nil, zap.NewNop())
	_, err := svc.StudentGrid(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceStudentSessions(t *testing.T) {
	sessions := []models.Session{{Course: "Networks", Faculty: "Dr. B", Day: "Tue", Time: "10:00-11:00"}}
	data, err := models.EncodeSessions(sessions)
	require.NoError(t, err)
	reader := &stubTimetableReader{record: &models.StudentTimetable{StudentID: "s1", Data: data}}
	svc := NewTimetableService(reader, nil, zap.NewNop())

	got, err := svc.StudentSessions(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, sessions, got)

	reader.record = nil
	reader.recordErr = sql.ErrNoRows
	_, err = svc.StudentSessions(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
