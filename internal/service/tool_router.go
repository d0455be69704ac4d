package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/models"
	"github.com/noah-isme/gema-admin-query/internal/observability"
	"github.com/noah-isme/gema-admin-query/internal/repository"
	"github.com/noah-isme/gema-admin-query/pkg/ai"
)

// Tool identifiers exposed to the language model.
const (
	ToolStudentsNoHomework = "students_no_homework"
	ToolPerformanceData    = "performance_data"
	ToolUpcomingQuizzes    = "upcoming_quizzes"
	ToolAllStudents        = "all_students"
)

// Fixed tool responses for empty or unusable results.
const (
	NoHomeworkResultsMessage    = "No students found or no access to data."
	MissingGradeMessage         = "Please specify a grade number (e.g., Grade 8)"
	NoUpcomingQuizzesMessage    = "No upcoming quizzes found or no access to data."
	NoAccessibleStudentsMessage = "No students accessible."
	noPerformanceDataTemplate   = "No performance data found for Grade %d or no access."
)

// ErrUnknownTool indicates a tool identifier outside the fixed tool set.
var ErrUnknownTool = errors.New("unknown tool")

var gradePattern = regexp.MustCompile(`(?i)grade\s*(\d+)`)

var toolParameters = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The admin's question, or the part of it this tool should answer."}
  },
  "required": ["query"]
}`)

// ToolWindow holds the default date windows used by date-relative tools.
type ToolWindow struct {
	DaysBack  int
	DaysAhead int
}

// DefaultToolWindow returns the one-week lookback and lookahead windows.
func DefaultToolWindow() ToolWindow {
	return ToolWindow{DaysBack: 7, DaysAhead: 7}
}

type toolDefinition struct {
	name        string
	description string
	run         func(query string) string
}

// ToolRouter binds the fixed tool set to one admin scope and one dataset.
// Every tool answers with plain text, never an error, for any input.
type ToolRouter struct {
	repo   repository.DatasetRepository
	scope  access.Scope
	window ToolWindow
	logger zerolog.Logger
	tools  []toolDefinition
}

// NewToolRouter constructs the tool router for a scope.
func NewToolRouter(repo repository.DatasetRepository, scope access.Scope, window ToolWindow, logger zerolog.Logger) *ToolRouter {
	if window.DaysBack < 0 {
		window.DaysBack = DefaultToolWindow().DaysBack
	}
	if window.DaysAhead < 0 {
		window.DaysAhead = DefaultToolWindow().DaysAhead
	}

	router := &ToolRouter{
		repo:   repo,
		scope:  scope,
		window: window,
		logger: logger.With().Str("component", "tool_router").Str("admin_id", scope.AdminID).Logger(),
	}
	router.tools = []toolDefinition{
		{
			name:        ToolStudentsNoHomework,
			description: "Use this to find students who haven't submitted homework",
			run:         func(string) string { return router.StudentsNoHomework() },
		},
		{
			name:        ToolPerformanceData,
			description: "Use this to get quiz performance data for a specific grade. The query must mention the grade number, e.g. 'Grade 8'",
			run:         router.PerformanceData,
		},
		{
			name:        ToolUpcomingQuizzes,
			description: "Use this to get upcoming quizzes scheduled for next week",
			run:         func(string) string { return router.UpcomingQuizzes() },
		},
		{
			name:        ToolAllStudents,
			description: "Use this to list all students you have access to",
			run:         func(string) string { return router.AllStudents() },
		},
	}

	return router
}

// Names lists the tool identifiers in a stable order.
func (r *ToolRouter) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, tool := range r.tools {
		names = append(names, tool.name)
	}
	return names
}

// Specs describes the tools for the language model.
func (r *ToolRouter) Specs() []ai.ToolSpec {
	specs := make([]ai.ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, ai.ToolSpec{
			Name:        tool.name,
			Description: tool.description,
			Parameters:  toolParameters,
		})
	}
	return specs
}

// Invoke runs the named tool. Unknown identifiers are rejected.
func (r *ToolRouter) Invoke(name, query string) (string, error) {
	for _, tool := range r.tools {
		if tool.name == name {
			r.logger.Debug().Str("tool", name).Msg("invoking tool")
			return tool.run(query), nil
		}
	}

	observability.ToolCalls().WithLabelValues("unknown", "rejected").Inc()
	r.logger.Warn().Str("tool", name).Msg("rejected unknown tool")
	return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

// StudentsNoHomework lists accessible students who have not submitted homework.
func (r *ToolRouter) StudentsNoHomework() string {
	students := r.repo.StudentsMissingHomework(r.scope)
	if len(students) == 0 {
		return r.empty(ToolStudentsNoHomework, NoHomeworkResultsMessage)
	}

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		rows = append(rows, []string{student.Name, gradeCell(student.Placement), classCell(student.Placement), textCell(student.HomeworkDate)})
	}
	return r.table(ToolStudentsNoHomework, []string{"name", "grade", "class", "homework_date"}, rows)
}

// PerformanceData reports recent quiz scores for the grade named in query.
func (r *ToolRouter) PerformanceData(query string) string {
	grade, ok := extractGrade(query)
	if !ok {
		observability.ToolCalls().WithLabelValues(ToolPerformanceData, "invalid").Inc()
		return MissingGradeMessage
	}

	students := r.repo.PerformanceByGrade(r.scope, grade, r.window.DaysBack)
	if len(students) == 0 {
		return r.empty(ToolPerformanceData, fmt.Sprintf(noPerformanceDataTemplate, grade))
	}

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		rows = append(rows, []string{student.Name, gradeCell(student.Placement), classCell(student.Placement), scoreCell(student.QuizScore), textCell(student.QuizDate)})
	}
	return r.table(ToolPerformanceData, []string{"name", "grade", "class", "quiz_score", "quiz_date"}, rows)
}

// UpcomingQuizzes lists accessible quizzes inside the lookahead window.
func (r *ToolRouter) UpcomingQuizzes() string {
	quizzes := r.repo.UpcomingQuizzes(r.scope, r.window.DaysAhead)
	if len(quizzes) == 0 {
		return r.empty(ToolUpcomingQuizzes, NoUpcomingQuizzesMessage)
	}

	rows := make([][]string, 0, len(quizzes))
	for _, quiz := range quizzes {
		rows = append(rows, []string{quiz.Title, gradeCell(quiz.Placement), classCell(quiz.Placement), textCell(quiz.ScheduledDate)})
	}
	return r.table(ToolUpcomingQuizzes, []string{"title", "grade", "class", "scheduled_date"}, rows)
}

// AllStudents lists every student the scope can access.
func (r *ToolRouter) AllStudents() string {
	students := r.repo.FilteredStudents(r.scope)
	if len(students) == 0 {
		return r.empty(ToolAllStudents, NoAccessibleStudentsMessage)
	}

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		region, _ := student.RegionValue()
		rows = append(rows, []string{student.Name, gradeCell(student.Placement), classCell(student.Placement), textCell(region)})
	}
	return r.table(ToolAllStudents, []string{"name", "grade", "class", "region"}, rows)
}

func (r *ToolRouter) empty(tool, message string) string {
	observability.ToolCalls().WithLabelValues(tool, "empty").Inc()
	return message
}

func (r *ToolRouter) table(tool string, headers []string, rows [][]string) string {
	observability.ToolCalls().WithLabelValues(tool, "rows").Inc()
	r.logger.Debug().Str("tool", tool).Int("rows", len(rows)).Msg("tool produced rows")
	return renderTable(headers, rows)
}

func extractGrade(query string) (int, bool) {
	match := gradePattern.FindStringSubmatch(query)
	if match == nil {
		return 0, false
	}
	grade, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return grade, true
}

func renderTable(headers []string, rows [][]string) string {
	var buf bytes.Buffer
	writer := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	_ = writer.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

func gradeCell(p models.Placement) string {
	if grade, ok := p.GradeValue(); ok {
		return strconv.Itoa(grade)
	}
	return "-"
}

func classCell(p models.Placement) string {
	class, _ := p.ClassValue()
	return textCell(class)
}

func scoreCell(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

func textCell(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
