package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeGradesUsesPerCourseThreshold(t *testing.T) {
	grades := []ScoredGrade{
		{Grade: Grade{Score: 55}, PassingScore: 50},
		{Grade: Grade{Score: 65}, PassingScore: 70},
		{Grade: Grade{Score: 90}, PassingScore: 60},
	}

	summary := SummarizeGrades(grades)

	assert.Equal(t, 3, summary.TotalGrades)
	assert.Equal(t, 70.0, summary.AverageScore)
	assert.Equal(t, 90.0, summary.HighestScore)
	assert.Equal(t, 55.0, summary.LowestScore)
	assert.Equal(t, 66.67, summary.PassRate)
}

func TestSummarizeGradesEmpty(t *testing.T) {
	assert.Equal(t, GradeSummary{}, SummarizeGrades(nil))
}
