package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimas-digital/matricula-api/internal/models"
)

func validDraft() *models.EnrollmentCase {
	return &models.EnrollmentCase{
		CycleID:    "2026",
		CampusCode: "SUR",
		FamilyID:   "f1",
		Status:     models.CaseStatusDraft,
		Students: []models.StudentAgreement{
			{
				LocalID:            "slot-1",
				StudentID:          "s1",
				ClassroomID:        "c1",
				PreviousSchoolType: models.SchoolTypeCimas,
				PensionMonths:      BuildScheduleFromGeneralAmount(120, 0),
			},
		},
	}
}

func seatsState(available int) models.CapacityState {
	return models.CapacityState{Available: &available}
}

func TestValidateCaseValid(t *testing.T) {
	result := ValidateCase(validDraft(), map[string]models.CapacityState{"slot-1": seatsState(5)})
	assert.True(t, result.IsValid)
	assert.Empty(t, result.BlockingReason)
	assert.Empty(t, result.Errors)
}

func TestValidateCaseMissingGlobalFields(t *testing.T) {
	draft := validDraft()
	draft.CycleID = ""
	draft.FamilyID = "  "

	result := ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(5)})
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{MsgCycleRequired, MsgFamilyRequired}, result.Errors[models.GlobalErrorKey])
	assert.Equal(t, MsgCycleRequired, result.BlockingReason)
}

func TestValidateCaseNoStudents(t *testing.T) {
	draft := validDraft()
	draft.Students = nil

	result := ValidateCase(draft, nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgNoStudents, result.BlockingReason)
}

func TestValidateCaseNilDraft(t *testing.T) {
	result := ValidateCase(nil, nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgCycleRequired, result.BlockingReason)
}

func TestValidateCaseClassroomRequired(t *testing.T) {
	draft := validDraft()
	draft.Students[0].ClassroomID = ""

	result := ValidateCase(draft, nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{MsgClassroomRequired}, result.StudentErrors("slot-1"))
	assert.Equal(t, MsgClassroomRequired, result.BlockingReason)
}

func TestValidateCaseCapacityStates(t *testing.T) {
	draft := validDraft()

	result := ValidateCase(draft, map[string]models.CapacityState{"slot-1": {IsLoading: true}})
	assert.Equal(t, MsgCapacityLoading, result.BlockingReason)

	result = ValidateCase(draft, map[string]models.CapacityState{"slot-1": {IsError: true}})
	assert.Equal(t, MsgCapacityError, result.BlockingReason)

	result = ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(0)})
	assert.Equal(t, MsgNoSeats, result.BlockingReason)
}

func TestValidateCaseSchoolNameRequiredForOther(t *testing.T) {
	draft := validDraft()
	draft.Students[0].PreviousSchoolType = models.SchoolTypeOther
	draft.Students[0].PreviousSchoolName = "   "

	result := ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(3)})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.StudentErrors("slot-1"), MsgSchoolNameRequired)

	draft.Students[0].PreviousSchoolName = "San Marcos"
	result = ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(3)})
	assert.True(t, result.IsValid)
}

func TestValidateCaseInvalidSchedule(t *testing.T) {
	draft := validDraft()
	draft.Students[0].PensionMonths = models.MonthlySchedule{1, 2, 3}

	result := ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(3)})
	assert.False(t, result.IsValid)
	assert.Contains(t, result.StudentErrors("slot-1"), MsgInvalidSchedule)
}

func TestValidateCaseBlockingReasonFollowsStudentOrder(t *testing.T) {
	draft := validDraft()
	draft.Students = append(draft.Students, models.StudentAgreement{
		LocalID:            "slot-2",
		StudentID:          "s2",
		ClassroomID:        "c2",
		PreviousSchoolType: models.SchoolTypeCimas,
		PensionMonths:      BuildScheduleFromGeneralAmount(120, 0),
	})

	capacity := map[string]models.CapacityState{
		"slot-1": seatsState(0),
		"slot-2": {IsError: true},
	}
	result := ValidateCase(draft, capacity)
	require.False(t, result.IsValid)
	assert.Equal(t, MsgNoSeats, result.BlockingReason)
	assert.Equal(t, []string{MsgNoSeats}, result.StudentErrors("slot-1"))
	assert.Equal(t, []string{MsgCapacityError}, result.StudentErrors("slot-2"))
}

func TestValidateCaseAccumulatesPerStudentErrors(t *testing.T) {
	draft := validDraft()
	draft.Students[0].PreviousSchoolType = models.SchoolTypeOther
	draft.Students[0].PensionMonths = nil

	result := ValidateCase(draft, map[string]models.CapacityState{"slot-1": seatsState(0)})
	assert.Equal(t, []string{MsgNoSeats, MsgSchoolNameRequired, MsgInvalidSchedule}, result.StudentErrors("slot-1"))
	assert.Equal(t, MsgNoSeats, result.BlockingReason)
}
