package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gema-admin-query/internal/models"
)

var (
	// ErrDataNotFound indicates the dataset source does not exist.
	ErrDataNotFound = errors.New("dataset not found")
	// ErrDataFormat indicates the dataset is not JSON or lacks the required collections.
	ErrDataFormat = errors.New("invalid dataset format")
)

const datasetSchemaURL = "dataset.schema.json"

const datasetSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["students", "quizzes"],
  "properties": {
    "students": {"type": "array", "items": {"type": "object"}},
    "quizzes": {"type": "array", "items": {"type": "object"}}
  }
}`

var compiledDatasetSchema = jsonschema.MustCompileString(datasetSchemaURL, datasetSchema)

// LoadDataset reads and decodes the dataset file at path.
func LoadDataset(path string) (models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Dataset{}, fmt.Errorf("%w: %s", ErrDataNotFound, path)
		}
		return models.Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	return DecodeDataset(data)
}

// DecodeDataset validates the raw payload and converts it into typed records.
// Fields with a missing or mistyped value are decoded as absent.
func DecodeDataset(data []byte) (models.Dataset, error) {
	if !looksLikeJSON(data) {
		return models.Dataset{}, fmt.Errorf("%w: payload is not json", ErrDataFormat)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return models.Dataset{}, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return models.Dataset{}, fmt.Errorf("%w: trailing data after json document", ErrDataFormat)
	}

	if err := compiledDatasetSchema.Validate(payload); err != nil {
		return models.Dataset{}, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}

	root := payload.(map[string]interface{})
	students := root["students"].([]interface{})
	quizzes := root["quizzes"].([]interface{})

	dataset := models.Dataset{
		Students: make([]models.StudentRecord, 0, len(students)),
		Quizzes:  make([]models.QuizRecord, 0, len(quizzes)),
	}
	for _, item := range students {
		dataset.Students = append(dataset.Students, decodeStudent(item.(map[string]interface{})))
	}
	for _, item := range quizzes {
		dataset.Quizzes = append(dataset.Quizzes, decodeQuiz(item.(map[string]interface{})))
	}

	return dataset, nil
}

func looksLikeJSON(data []byte) bool {
	for mime := mimetype.Detect(data); mime != nil; mime = mime.Parent() {
		if mime.Is("application/json") {
			return true
		}
	}
	return false
}

func decodeStudent(fields map[string]interface{}) models.StudentRecord {
	return models.StudentRecord{
		Name:              stringValue(fields, "name"),
		Placement:         decodePlacement(fields),
		HomeworkSubmitted: boolField(fields, "homework_submitted"),
		HomeworkDate:      stringValue(fields, "homework_date"),
		QuizScore:         floatField(fields, "quiz_score"),
		QuizDate:          stringValue(fields, "quiz_date"),
	}
}

func decodeQuiz(fields map[string]interface{}) models.QuizRecord {
	return models.QuizRecord{
		Title:         stringValue(fields, "title"),
		Placement:     decodePlacement(fields),
		ScheduledDate: stringValue(fields, "scheduled_date"),
		Status:        stringValue(fields, "status"),
	}
}

func decodePlacement(fields map[string]interface{}) models.Placement {
	return models.Placement{
		Grade:  intField(fields, "grade"),
		Class:  stringField(fields, "class"),
		Region: stringField(fields, "region"),
	}
}

func stringField(fields map[string]interface{}, key string) *string {
	value, ok := fields[key].(string)
	if !ok {
		return nil
	}
	return &value
}

func stringValue(fields map[string]interface{}, key string) string {
	if value := stringField(fields, key); value != nil {
		return *value
	}
	return ""
}

func intField(fields map[string]interface{}, key string) *int {
	number, ok := fields[key].(json.Number)
	if !ok {
		return nil
	}
	if parsed, err := number.Int64(); err == nil {
		if parsed < math.MinInt32 || parsed > math.MaxInt32 {
			return nil
		}
		value := int(parsed)
		return &value
	}
	parsed, err := number.Float64()
	if err != nil || parsed != math.Trunc(parsed) || parsed < math.MinInt32 || parsed > math.MaxInt32 {
		return nil
	}
	value := int(parsed)
	return &value
}

func floatField(fields map[string]interface{}, key string) *float64 {
	number, ok := fields[key].(json.Number)
	if !ok {
		return nil
	}
	parsed, err := number.Float64()
	if err != nil {
		return nil
	}
	return &parsed
}

func boolField(fields map[string]interface{}, key string) *bool {
	value, ok := fields[key].(bool)
	if !ok {
		return nil
	}
	return &value
}
