package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/models"
	"github.com/noah-isme/gema-admin-query/internal/repository"
	"github.com/noah-isme/gema-admin-query/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

var (
	northAdmin = access.Scope{AdminID: "admin1", Name: "John Doe", Grade: 8, Region: "North"}
	southAdmin = access.Scope{AdminID: "admin2", Name: "Jane Smith", Grade: 9, Region: "South"}
)

func dateOffset(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func newStudent(name string, grade int, class, region string) models.StudentRecord {
	return models.StudentRecord{
		Name:      name,
		Placement: models.Placement{Grade: intPtr(grade), Class: strPtr(class), Region: strPtr(region)},
	}
}

func testDataset() models.Dataset {
	asha := newStudent("Asha", 8, "A", "North")
	asha.HomeworkSubmitted = boolPtr(false)
	asha.HomeworkDate = dateOffset(-1)
	asha.QuizScore = floatPtr(78.5)
	asha.QuizDate = dateOffset(-2)

	bima := newStudent("Bima", 8, "B", "North")
	bima.HomeworkSubmitted = boolPtr(true)
	bima.HomeworkDate = dateOffset(-1)
	bima.QuizScore = floatPtr(91)
	bima.QuizDate = dateOffset(-20)

	citra := newStudent("Citra", 9, "A", "South")
	citra.HomeworkSubmitted = boolPtr(false)
	citra.QuizScore = floatPtr(65)
	citra.QuizDate = dateOffset(-1)

	return models.Dataset{
		Students: []models.StudentRecord{asha, bima, citra},
		Quizzes: []models.QuizRecord{
			{Title: "Fractions", Placement: models.Placement{Grade: intPtr(8), Class: strPtr("A"), Region: strPtr("North")}, ScheduledDate: dateOffset(2), Status: models.QuizStatusUpcoming},
			{Title: "Geometry", Placement: models.Placement{Grade: intPtr(8), Class: strPtr("A"), Region: strPtr("North")}, ScheduledDate: dateOffset(-3), Status: models.QuizStatusCompleted},
			{Title: "Poetry", Placement: models.Placement{Grade: intPtr(9), Class: strPtr("A"), Region: strPtr("South")}, ScheduledDate: dateOffset(3), Status: models.QuizStatusUpcoming},
		},
	}
}

func testRepo() repository.DatasetRepository {
	return repository.NewDatasetRepository(testDataset(), testLogger())
}

// scriptedModel replays replies in order and records every conversation it saw.
type scriptedModel struct {
	mu      sync.Mutex
	replies []ai.Message
	errs    []error
	repeat  *ai.Message
	calls   [][]ai.Message
	tools   [][]ai.ToolSpec
}

func (m *scriptedModel) Chat(_ context.Context, messages []ai.Message, tools []ai.ToolSpec) (ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]ai.Message(nil), messages...))
	m.tools = append(m.tools, tools)
	idx := len(m.calls) - 1

	if idx < len(m.errs) && m.errs[idx] != nil {
		return ai.Message{}, m.errs[idx]
	}
	if idx < len(m.replies) {
		return m.replies[idx], nil
	}
	if m.repeat != nil {
		return *m.repeat, nil
	}
	return ai.Message{}, errors.New("script exhausted")
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type blockingModel struct{}

func (blockingModel) Chat(ctx context.Context, _ []ai.Message, _ []ai.ToolSpec) (ai.Message, error) {
	<-ctx.Done()
	return ai.Message{}, ctx.Err()
}

func factoryFor(model ai.ChatModel) ModelFactory {
	return func(string) (ai.ChatModel, error) {
		return model, nil
	}
}

func answer(text string) ai.Message {
	return ai.Message{Role: ai.RoleAssistant, Content: text}
}

func toolCall(id, name, arguments string) ai.Message {
	return ai.Message{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: id, Name: name, Arguments: arguments}}}
}
