package models

// StudentRecord is a learner row from the dataset together with their latest
// homework and quiz activity.
type StudentRecord struct {
	Name string `json:"name"`
	Placement
	HomeworkSubmitted *bool    `json:"homework_submitted,omitempty"`
	HomeworkDate      string   `json:"homework_date,omitempty"`
	QuizScore         *float64 `json:"quiz_score,omitempty"`
	QuizDate          string   `json:"quiz_date,omitempty"`
}

// MissingHomework reports whether the record explicitly says homework was not
// submitted. An absent flag is not treated as missing homework.
func (s StudentRecord) MissingHomework() bool {
	return s.HomeworkSubmitted != nil && !*s.HomeworkSubmitted
}
