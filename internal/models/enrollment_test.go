package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentTransitionTable(t *testing.T) {
	all := []EnrollmentStatus{
		EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCompleted,
		EnrollmentStatusDropped, EnrollmentStatusWithdrawn,
	}
	allowed := map[[2]EnrollmentStatus]bool{
		{EnrollmentStatusPending, EnrollmentStatusActive}:   true,
		{EnrollmentStatusActive, EnrollmentStatusCompleted}: true,
		{EnrollmentStatusActive, EnrollmentStatusDropped}:   true,
		{EnrollmentStatusActive, EnrollmentStatusWithdrawn}: true,
		{EnrollmentStatusWithdrawn, EnrollmentStatusActive}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]EnrollmentStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestEnrollmentTransitionRejectsTerminalStates(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusCompleted}

	err := e.Transition(EnrollmentStatusActive)
	require.Error(t, err)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, EnrollmentStatusCompleted, te.From)
	assert.Equal(t, EnrollmentStatusCompleted, e.Status)
}

func TestEnrollmentAppendNote(t *testing.T) {
	e := &Enrollment{}
	e.AppendNote("Withdrawn: moved schools")
	e.AppendNote("")
	e.AppendNote("Reactivated")

	assert.Equal(t, "Withdrawn: moved schools\nReactivated", e.Notes)
}

func TestNewEnrollmentStatistics(t *testing.T) {
	stats := NewEnrollmentStatistics(map[EnrollmentStatus]int{
		EnrollmentStatusActive:    4,
		EnrollmentStatusCompleted: 1,
		EnrollmentStatusWithdrawn: 1,
	})

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 16.67, stats.CompletionRate)
	assert.Equal(t, 0.0, NewEnrollmentStatistics(nil).CompletionRate)
}
