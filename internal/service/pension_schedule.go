package service

import (
	"math"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// Pension schedule helpers. All functions are total: any malformed input is
// coerced into a well-formed 10-slot schedule rather than rejected; callers
// never receive an error from this file.

// clampStartIndex confines a start-month index to the valid slot range.
func clampStartIndex(startIndex int) int {
	if startIndex < 0 {
		return 0
	}
	if startIndex >= models.ScheduleMonths {
		return models.ScheduleMonths - 1
	}
	return startIndex
}

// safeAmount coerces non-finite amounts to zero.
func safeAmount(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return amount
}

// BuildScheduleFromGeneralAmount derives a full schedule from a flat monthly
// amount: months before the start index carry the not-charged sentinel, every
// month from the start index on carries the amount.
func BuildScheduleFromGeneralAmount(amount float64, startIndex int) models.MonthlySchedule {
	startIndex = clampStartIndex(startIndex)
	amount = safeAmount(amount)
	schedule := make(models.MonthlySchedule, models.ScheduleMonths)
	for i := range schedule {
		if i < startIndex {
			schedule[i] = models.NotCharged
		} else {
			schedule[i] = amount
		}
	}
	return schedule
}

// ApplyStartIndexToSchedule re-derives the leading not-charged run for a new
// start index while leaving every slot at or after it untouched. Used for
// customized schedules, where user-entered amounts must survive a start-month
// change.
func ApplyStartIndexToSchedule(schedule models.MonthlySchedule, startIndex int) models.MonthlySchedule {
	startIndex = clampStartIndex(startIndex)
	out := NormalizeSchedule(schedule, models.NotCharged)
	for i := 0; i < startIndex; i++ {
		out[i] = models.NotCharged
	}
	return out
}

// NormalizeSchedule coerces arbitrary input into a well-formed schedule:
// exactly ScheduleMonths slots, every slot finite. Slots that are missing or
// non-finite become fallback. This is the single choke point guaranteeing the
// schedule invariant before validation, export or persistence.
func NormalizeSchedule(raw []float64, fallback float64) models.MonthlySchedule {
	if math.IsNaN(fallback) || math.IsInf(fallback, 0) {
		fallback = models.NotCharged
	}
	out := make(models.MonthlySchedule, models.ScheduleMonths)
	for i := range out {
		if i >= len(raw) {
			out[i] = fallback
			continue
		}
		v := raw[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = fallback
			continue
		}
		out[i] = v
	}
	return out
}

// scheduleWellFormed reports whether the raw schedule already satisfies the
// invariant NormalizeSchedule enforces.
func scheduleWellFormed(raw []float64) bool {
	if len(raw) != models.ScheduleMonths {
		return false
	}
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
