package models

// Quiz statuses used by the dataset.
const (
	QuizStatusUpcoming  = "upcoming"
	QuizStatusCompleted = "completed"
)

// QuizRecord describes a scheduled quiz for a grade/class/region.
type QuizRecord struct {
	Title string `json:"title"`
	Placement
	ScheduledDate string `json:"scheduled_date,omitempty"`
	Status        string `json:"status,omitempty"`
}

// IsUpcoming reports whether the quiz carries the upcoming status.
func (q QuizRecord) IsUpcoming() bool {
	return q.Status == QuizStatusUpcoming
}

// Dataset owns the full, unfiltered student and quiz collections.
type Dataset struct {
	Students []StudentRecord `json:"students"`
	Quizzes  []QuizRecord    `json:"quizzes"`
}
