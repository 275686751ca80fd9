package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Rakshithh-K/New-Hack/internal/models"
)

func TestCourseRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		Code:     "CS201",
		Title:    "Data Structures",
		Category: models.CourseCategoryMajor,
		Semester: 3,
		Credits:  4,
	}
	require.NoError(t, repo.Create(context.Background(), course))
	require.NotEmpty(t, course.ID)

	rows := sqlmock.NewRows([]string{"id", "code", "title", "category", "semester", "credits", "created_at", "updated_at"}).
		AddRow(course.ID, course.Code, course.Title, string(course.Category), course.Semester, course.Credits, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, title, category, semester, credits, created_at, updated_at FROM courses WHERE id = $1")).
		WithArgs(course.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), course.ID)
	require.NoError(t, err)
	require.Equal(t, "Data Structures", found.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDsPreservesInputOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{"id", "code", "title", "category", "semester", "credits", "created_at", "updated_at"}).
		AddRow("c1", "CS101", "Intro", "major", 1, 4, time.Now(), time.Now()).
		AddRow("c2", "CS201", "Data Structures", "major", 3, 4, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id IN")).
		WithArgs("c2", "c1").
		WillReturnRows(rows)

	courses, err := repo.FindByIDs(context.Background(), []string{"c2", "c1"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, "c2", courses[0].ID)
	require.Equal(t, "c1", courses[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDsEmptyInput(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	courses, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, courses)
}

func TestCourseRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{"id", "code", "title", "category", "semester", "credits", "created_at", "updated_at"}).
		AddRow("c1", "CS101", "Intro", "major", 1, 4, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE 1=1 AND category = $1 AND semester = $2")).
		WithArgs("major", 1).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE 1=1 AND category = $1 AND semester = $2")).
		WithArgs("major", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Category: "major", Semester: 1})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
