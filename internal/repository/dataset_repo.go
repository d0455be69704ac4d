package repository

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/models"
)

const day = 24 * time.Hour

// DatasetRepository exposes scope-filtered, read-only queries over the dataset.
// Every call re-derives its result from the full dataset and the current clock.
type DatasetRepository interface {
	FilteredStudents(scope access.Scope) []models.StudentRecord
	FilteredQuizzes(scope access.Scope) []models.QuizRecord
	StudentsMissingHomework(scope access.Scope) []models.StudentRecord
	PerformanceByGrade(scope access.Scope, grade int, daysBack int) []models.StudentRecord
	UpcomingQuizzes(scope access.Scope, daysAhead int) []models.QuizRecord
	Counts() (students int, quizzes int)
}

type datasetRepository struct {
	students []models.StudentRecord
	quizzes  []models.QuizRecord
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDatasetRepository wraps an already decoded dataset.
func NewDatasetRepository(dataset models.Dataset, logger zerolog.Logger) DatasetRepository {
	return &datasetRepository{
		students: append([]models.StudentRecord(nil), dataset.Students...),
		quizzes:  append([]models.QuizRecord(nil), dataset.Quizzes...),
		logger:   logger.With().Str("component", "dataset_repository").Logger(),
		now:      time.Now,
	}
}

// OpenDatasetRepository loads the dataset file once and returns the store.
func OpenDatasetRepository(path string, logger zerolog.Logger) (DatasetRepository, error) {
	dataset, err := LoadDataset(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to load dataset")
		return nil, err
	}

	repo := NewDatasetRepository(dataset, logger)
	students, quizzes := repo.Counts()
	logger.Info().Int("students", students).Int("quizzes", quizzes).Msg("dataset loaded")
	return repo, nil
}

func (r *datasetRepository) Counts() (int, int) {
	return len(r.students), len(r.quizzes)
}

func (r *datasetRepository) FilteredStudents(scope access.Scope) (result []models.StudentRecord) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error().Interface("panic", recovered).Str("admin_id", scope.AdminID).Msg("failed to filter students")
			result = []models.StudentRecord{}
		}
	}()

	result = make([]models.StudentRecord, 0)
	for _, student := range r.students {
		if scope.CanAccess(student) {
			result = append(result, student)
		}
	}

	r.logger.Debug().Str("admin_id", scope.AdminID).Int("count", len(result)).Msg("filtered students")
	return result
}

func (r *datasetRepository) FilteredQuizzes(scope access.Scope) (result []models.QuizRecord) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error().Interface("panic", recovered).Str("admin_id", scope.AdminID).Msg("failed to filter quizzes")
			result = []models.QuizRecord{}
		}
	}()

	result = make([]models.QuizRecord, 0)
	for _, quiz := range r.quizzes {
		if scope.CanAccess(quiz) {
			result = append(result, quiz)
		}
	}

	r.logger.Debug().Str("admin_id", scope.AdminID).Int("count", len(result)).Msg("filtered quizzes")
	return result
}

func (r *datasetRepository) StudentsMissingHomework(scope access.Scope) []models.StudentRecord {
	students := r.FilteredStudents(scope)
	result := make([]models.StudentRecord, 0, len(students))
	for _, student := range students {
		if student.MissingHomework() {
			result = append(result, student)
		}
	}
	return result
}

func (r *datasetRepository) PerformanceByGrade(scope access.Scope, grade int, daysBack int) []models.StudentRecord {
	students := r.FilteredStudents(scope)
	cutoff := r.now().Add(-time.Duration(daysBack) * day)

	result := make([]models.StudentRecord, 0, len(students))
	for _, student := range students {
		studentGrade, ok := student.GradeValue()
		if !ok || studentGrade != grade {
			continue
		}
		quizDate, err := models.ParseRecordDate(student.QuizDate)
		if err != nil {
			continue
		}
		if !quizDate.Before(cutoff) {
			result = append(result, student)
		}
	}
	return result
}

func (r *datasetRepository) UpcomingQuizzes(scope access.Scope, daysAhead int) []models.QuizRecord {
	quizzes := r.FilteredQuizzes(scope)
	now := r.now()
	horizon := now.Add(time.Duration(daysAhead) * day)

	result := make([]models.QuizRecord, 0, len(quizzes))
	for _, quiz := range quizzes {
		if !quiz.IsUpcoming() {
			continue
		}
		scheduled, err := models.ParseRecordDate(quiz.ScheduledDate)
		if err != nil {
			continue
		}
		if !scheduled.Before(now) && !scheduled.After(horizon) {
			result = append(result, quiz)
		}
	}
	return result
}
