package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-admin-query/internal/models"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func placement(grade *int, class, region *string) models.StudentRecord {
	return models.StudentRecord{Name: "Test", Placement: models.Placement{Grade: grade, Class: class, Region: region}}
}

func TestScopeCanAccessMatchingRecord(t *testing.T) {
	scope := Scope{AdminID: "admin1", Name: "John Doe", Grade: 8, Region: "North"}

	require.True(t, scope.CanAccess(placement(intPtr(8), strPtr("A"), strPtr("North"))))
	require.False(t, scope.CanAccess(placement(intPtr(9), nil, strPtr("North"))))
	require.False(t, scope.CanAccess(placement(intPtr(8), strPtr("A"), strPtr("South"))))
}

func TestScopeCanAccessFailsClosedOnMissingField(t *testing.T) {
	scope := Scope{AdminID: "admin1", Name: "John Doe", Grade: 8}

	require.False(t, scope.CanAccess(placement(nil, strPtr("A"), strPtr("North"))))

	classScope := Scope{AdminID: "a", Name: "A", ClassSection: "B"}
	require.False(t, classScope.CanAccess(placement(intPtr(8), nil, nil)))
}

func TestScopeUnconstrainedAxesNeverReject(t *testing.T) {
	scope := Scope{AdminID: "root", Name: "Root"}
	require.True(t, scope.Unrestricted())

	require.True(t, scope.CanAccess(placement(nil, nil, nil)))
	require.True(t, scope.CanAccess(placement(intPtr(11), strPtr("C"), strPtr("West"))))
}

func TestScopeAppliesToQuizzes(t *testing.T) {
	scope := Scope{AdminID: "admin2", Name: "Jane Smith", Grade: 9, Region: "South"}
	quiz := models.QuizRecord{Title: "Algebra", Placement: models.Placement{Grade: intPtr(9), Region: strPtr("South")}}

	require.True(t, CanAccess(quiz, scope))
	quiz.Region = strPtr("North")
	require.False(t, CanAccess(quiz, scope))
}

func TestScopeCanAccessNilRecord(t *testing.T) {
	require.False(t, Scope{}.CanAccess(nil))
}

func TestScopeDescribe(t *testing.T) {
	require.Equal(t, "Grade 8, Region North", Scope{Grade: 8, Region: "North"}.Describe())
	require.Equal(t, "Grade 7, Class B, Region East", Describe(Scope{Grade: 7, ClassSection: "B", Region: "East"}))
	require.Equal(t, "All accessible data", Scope{AdminID: "x"}.Describe())
}

func TestDisjointScopesYieldDisjointAccess(t *testing.T) {
	north := Scope{AdminID: "n", Name: "N", Region: "North"}
	south := Scope{AdminID: "s", Name: "S", Region: "South"}

	records := []models.StudentRecord{
		placement(intPtr(8), nil, strPtr("North")),
		placement(intPtr(8), nil, strPtr("South")),
		placement(intPtr(9), nil, strPtr("North")),
	}
	for _, record := range records {
		require.False(t, north.CanAccess(record) && south.CanAccess(record))
	}
}
