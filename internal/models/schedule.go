package models

// ScheduleMonths is the fixed number of billable months in an academic
// cycle, March through December.
const ScheduleMonths = 10

// NotCharged is the slot sentinel for months before the student's start
// month: no pension is generated for them.
const NotCharged float64 = -1

// MonthNames lists the billable months in slot order.
var MonthNames = [ScheduleMonths]string{
	"Marzo", "Abril", "Mayo", "Junio", "Julio",
	"Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthlySchedule is the per-student pension schedule: one amount per
// billable month, or NotCharged.
type MonthlySchedule []float64

// Clone returns an independent copy of the schedule.
func (s MonthlySchedule) Clone() MonthlySchedule {
	if s == nil {
		return nil
	}
	out := make(MonthlySchedule, len(s))
	copy(out, s)
	return out
}
