package models

import "time"

// Grade is a scored assessment of a student in a course.
type Grade struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Score      float64   `db:"score" json:"score"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	Letter     string    `db:"grade" json:"grade,omitempty"`
	Date       time.Time `db:"date" json:"date"`
	Remarks    string    `db:"remarks" json:"remarks,omitempty"`
	RecordedBy *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ScoredGrade pairs a grade with its course passing threshold.
type ScoredGrade struct {
	Grade
	PassingScore float64 `db:"passing_score" json:"passing_score"`
}

// IsPassing compares against the grade's own course threshold.
func (g ScoredGrade) IsPassing() bool {
	return g.Score >= g.PassingScore
}

// GradeSummary aggregates a student's grades.
type GradeSummary struct {
	TotalGrades  int     `json:"total_grades"`
	AverageScore float64 `json:"average_score"`
	HighestScore float64 `json:"highest_score"`
	LowestScore  float64 `json:"lowest_score"`
	PassRate     float64 `json:"pass_rate"`
}

// SummarizeGrades computes the summary; all fields are 0 when there are no grades.
func SummarizeGrades(grades []ScoredGrade) GradeSummary {
	if len(grades) == 0 {
		return GradeSummary{}
	}
	summary := GradeSummary{TotalGrades: len(grades), HighestScore: grades[0].Score, LowestScore: grades[0].Score}
	var sum float64
	passing := 0
	for _, g := range grades {
		sum += g.Score
		if g.Score > summary.HighestScore {
			summary.HighestScore = g.Score
		}
		if g.Score < summary.LowestScore {
			summary.LowestScore = g.Score
		}
		if g.IsPassing() {
			passing++
		}
	}
	summary.AverageScore = Round2(sum / float64(len(grades)))
	summary.PassRate = Percentage(passing, len(grades))
	return summary
}

// CourseGradeStatistics aggregates every grade recorded for a course.
type CourseGradeStatistics struct {
	Total    int     `db:"total" json:"total"`
	Average  float64 `db:"average" json:"average"`
	Highest  float64 `db:"highest" json:"highest"`
	Lowest   float64 `db:"lowest" json:"lowest"`
	Passing  int     `db:"passing" json:"passing"`
	PassRate float64 `db:"-" json:"pass_rate"`
}
