package repository

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/models"
)

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

func student(name string, grade int, class, region string) models.StudentRecord {
	return models.StudentRecord{
		Name:      name,
		Placement: models.Placement{Grade: intPtr(grade), Class: strPtr(class), Region: strPtr(region)},
	}
}

func quiz(title string, grade int, region, date, status string) models.QuizRecord {
	return models.QuizRecord{
		Title:         title,
		Placement:     models.Placement{Grade: intPtr(grade), Class: strPtr("A"), Region: strPtr(region)},
		ScheduledDate: date,
		Status:        status,
	}
}

func newTestRepo(dataset models.Dataset) *datasetRepository {
	repo := NewDatasetRepository(dataset, zerolog.Nop()).(*datasetRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo
}

var northScope = access.Scope{AdminID: "admin1", Name: "John Doe", Grade: 8, Region: "North"}

func TestFilteredStudentsAppliesScope(t *testing.T) {
	repo := newTestRepo(models.Dataset{Students: []models.StudentRecord{
		student("Asha", 8, "A", "North"),
		student("Bima", 9, "A", "North"),
		student("Citra", 8, "B", "South"),
		{Name: "Dewi", Placement: models.Placement{Region: strPtr("North")}},
	}})

	result := repo.FilteredStudents(northScope)
	require.Len(t, result, 1)
	require.Equal(t, "Asha", result[0].Name)

	all := repo.FilteredStudents(access.Scope{AdminID: "root", Name: "Root"})
	require.Len(t, all, 4)
}

func TestFilteredStudentsIsIdempotent(t *testing.T) {
	repo := newTestRepo(models.Dataset{Students: []models.StudentRecord{
		student("Asha", 8, "A", "North"),
		student("Eka", 8, "B", "North"),
	}})

	require.Equal(t, repo.FilteredStudents(northScope), repo.FilteredStudents(northScope))
}

func TestFilteredStudentsEmptyIsNotNil(t *testing.T) {
	repo := newTestRepo(models.Dataset{})
	result := repo.FilteredStudents(northScope)
	require.NotNil(t, result)
	require.Empty(t, result)
	require.Empty(t, repo.FilteredQuizzes(northScope))
}

func TestStudentsMissingHomework(t *testing.T) {
	missing := student("Asha", 8, "A", "North")
	missing.HomeworkSubmitted = boolPtr(false)
	done := student("Bima", 8, "A", "North")
	done.HomeworkSubmitted = boolPtr(true)
	unknown := student("Citra", 8, "A", "North")

	repo := newTestRepo(models.Dataset{Students: []models.StudentRecord{missing, done, unknown}})

	result := repo.StudentsMissingHomework(northScope)
	require.Len(t, result, 1)
	require.Equal(t, "Asha", result[0].Name)
}

func TestPerformanceByGradeWindow(t *testing.T) {
	recent := student("Asha", 8, "A", "North")
	recent.QuizDate = "2026-03-08"
	recent.QuizScore = floatPtr(88)
	old := student("Bima", 8, "A", "North")
	old.QuizDate = "2026-02-20"
	broken := student("Citra", 8, "A", "North")
	broken.QuizDate = "sometime last week"
	otherGrade := student("Dewi", 9, "A", "North")
	otherGrade.QuizDate = "2026-03-09"

	repo := newTestRepo(models.Dataset{Students: []models.StudentRecord{recent, old, broken, otherGrade}})

	result := repo.PerformanceByGrade(access.Scope{AdminID: "root", Name: "Root"}, 8, 7)
	require.Len(t, result, 1)
	require.Equal(t, "Asha", result[0].Name)

	require.Empty(t, repo.PerformanceByGrade(northScope, 9, 7))
}

func TestPerformanceByGradeZeroDaysBack(t *testing.T) {
	exact := student("Asha", 8, "A", "North")
	exact.QuizDate = "2026-03-10 12:00:00"
	earlier := student("Bima", 8, "A", "North")
	earlier.QuizDate = "2026-03-10 11:59:00"

	repo := newTestRepo(models.Dataset{Students: []models.StudentRecord{exact, earlier}})

	result := repo.PerformanceByGrade(northScope, 8, 0)
	require.Len(t, result, 1)
	require.Equal(t, "Asha", result[0].Name)
}

func TestUpcomingQuizzesWindow(t *testing.T) {
	repo := newTestRepo(models.Dataset{Quizzes: []models.QuizRecord{
		quiz("Soon", 8, "North", "2026-03-12", models.QuizStatusUpcoming),
		quiz("This morning", 8, "North", "2026-03-10", models.QuizStatusUpcoming),
		quiz("Edge", 8, "North", "2026-03-17 12:00:00", models.QuizStatusUpcoming),
		quiz("Too far", 8, "North", "2026-03-18", models.QuizStatusUpcoming),
		quiz("Done", 8, "North", "2026-03-12", models.QuizStatusCompleted),
		quiz("Broken", 8, "North", "next tuesday", models.QuizStatusUpcoming),
		quiz("Elsewhere", 8, "South", "2026-03-12", models.QuizStatusUpcoming),
	}})

	result := repo.UpcomingQuizzes(northScope, 7)
	titles := make([]string, 0, len(result))
	for _, item := range result {
		require.Equal(t, models.QuizStatusUpcoming, item.Status)
		titles = append(titles, item.Title)
	}
	require.Equal(t, []string{"Soon", "Edge"}, titles)
}

func TestRepositoryIsolatedFromSourceMutation(t *testing.T) {
	dataset := models.Dataset{Students: []models.StudentRecord{student("Asha", 8, "A", "North")}}
	repo := newTestRepo(dataset)
	dataset.Students[0] = student("Changed", 9, "B", "South")

	result := repo.FilteredStudents(northScope)
	require.Len(t, result, 1)
	require.Equal(t, "Asha", result[0].Name)
}

func TestOpenDatasetRepositoryPropagatesLoadErrors(t *testing.T) {
	_, err := OpenDatasetRepository(writeDataset(t, `{"students": []}`), zerolog.Nop())
	require.ErrorIs(t, err, ErrDataFormat)

	repo, err := OpenDatasetRepository(writeDataset(t, sampleDataset), zerolog.Nop())
	require.NoError(t, err)
	students, quizzes := repo.Counts()
	require.Equal(t, 3, students)
	require.Equal(t, 1, quizzes)
}
