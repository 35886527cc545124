package service

import (
	"strings"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// User-facing validation messages, in the product language. These are shown
// verbatim in the enrollment form, so wording changes are UX changes.
const (
	MsgCycleRequired      = "Seleccione el ciclo académico"
	MsgCampusRequired     = "Seleccione la sede"
	MsgFamilyRequired     = "Seleccione la familia"
	MsgNoStudents         = "Agregue al menos un estudiante a la matrícula"
	MsgClassroomRequired  = "Seleccione un aula para el estudiante"
	MsgCapacityLoading    = "Verificando las vacantes del aula seleccionada"
	MsgCapacityError      = "No se pudo verificar las vacantes del aula"
	MsgNoSeats            = "El aula seleccionada no tiene vacantes disponibles"
	MsgSchoolNameRequired = "Ingrese el colegio de procedencia del estudiante"
	MsgInvalidSchedule    = "El cronograma de pensiones del estudiante es inválido"
)

// ValidateCase runs the single synchronous validation pass over a case draft
// and the current capacity states. It is pure: safe to re-run on every edit,
// never blocks, never fails.
//
// The blocking reason is deterministic: the first global error wins, then the
// first error found scanning students in list order.
func ValidateCase(draft *models.EnrollmentCase, capacity map[string]models.CapacityState) models.ValidationResult {
	result := models.ValidationResult{Errors: make(map[string][]string)}
	if draft == nil {
		result.Errors[models.GlobalErrorKey] = []string{MsgCycleRequired, MsgCampusRequired, MsgFamilyRequired, MsgNoStudents}
		result.BlockingReason = MsgCycleRequired
		return result
	}

	var global []string
	if strings.TrimSpace(draft.CycleID) == "" {
		global = append(global, MsgCycleRequired)
	}
	if strings.TrimSpace(draft.CampusCode) == "" {
		global = append(global, MsgCampusRequired)
	}
	if strings.TrimSpace(draft.FamilyID) == "" {
		global = append(global, MsgFamilyRequired)
	}
	if len(draft.Students) == 0 {
		global = append(global, MsgNoStudents)
	}
	if len(global) > 0 {
		result.Errors[models.GlobalErrorKey] = global
	}

	for i := range draft.Students {
		student := &draft.Students[i]
		errs := validateStudentAgreement(student, capacity[student.LocalID])
		if len(errs) > 0 {
			result.Errors[student.LocalID] = errs
		}
	}

	if len(global) > 0 {
		result.BlockingReason = global[0]
	} else {
		for i := range draft.Students {
			if errs := result.Errors[draft.Students[i].LocalID]; len(errs) > 0 {
				result.BlockingReason = errs[0]
				break
			}
		}
	}
	result.IsValid = result.BlockingReason == ""
	return result
}

// validateStudentAgreement collects every applicable error for one student
// slot. Checks are independent: a slot can accumulate several messages.
func validateStudentAgreement(student *models.StudentAgreement, state models.CapacityState) []string {
	var errs []string

	if strings.TrimSpace(student.ClassroomID) == "" {
		errs = append(errs, MsgClassroomRequired)
	} else {
		if state.IsLoading {
			errs = append(errs, MsgCapacityLoading)
		}
		if state.IsError {
			errs = append(errs, MsgCapacityError)
		}
		if state.Available != nil && *state.Available <= 0 {
			errs = append(errs, MsgNoSeats)
		}
	}

	if student.PreviousSchoolType == models.SchoolTypeOther && strings.TrimSpace(student.PreviousSchoolName) == "" {
		errs = append(errs, MsgSchoolNameRequired)
	}

	if !scheduleWellFormed(student.PensionMonths) {
		errs = append(errs, MsgInvalidSchedule)
	}

	return errs
}
