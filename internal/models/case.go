package models

import "time"

// CaseStatus represents the lifecycle of an enrollment case.
type CaseStatus string

// Possible case statuses.
const (
	CaseStatusDraft     CaseStatus = "DRAFT"
	CaseStatusConfirmed CaseStatus = "CONFIRMED"
)

// PreviousSchoolType identifies where a student comes from. Admission fees
// only apply to students arriving from outside the network (OTHER).
type PreviousSchoolType string

// Recognized previous-school types.
const (
	SchoolTypeCimas             PreviousSchoolType = "CIMAS"
	SchoolTypeCiencias          PreviousSchoolType = "CIENCIAS"
	SchoolTypeCienciasAplicadas PreviousSchoolType = "CIENCIAS_APLICADAS"
	SchoolTypeOther             PreviousSchoolType = "OTHER"
)

// StudentAgreement holds one student's terms within an enrollment case.
// LocalID is assigned client-side when the slot is added and stays stable for
// the draft's lifetime; EnrollmentStudentID is only set once persisted.
type StudentAgreement struct {
	LocalID             string             `db:"-" json:"local_id"`
	EnrollmentStudentID *string            `db:"id" json:"enrollment_student_id,omitempty"`
	StudentID           string             `db:"student_id" json:"student_id"`
	ClassroomID         string             `db:"classroom_id" json:"classroom_id"`
	PreviousSchoolType  PreviousSchoolType `db:"previous_school_type" json:"previous_school_type"`
	PreviousSchoolName  string             `db:"previous_school_name" json:"previous_school_name"`
	EnrollmentFeeAmount float64            `db:"enrollment_fee_amount" json:"enrollment_fee_amount"`
	EnrollmentFeeExempt bool               `db:"enrollment_fee_exempt" json:"enrollment_fee_exempt"`
	AdmissionFeeAmount  float64            `db:"admission_fee_amount" json:"admission_fee_amount"`
	AdmissionFeeExempt  bool               `db:"admission_fee_exempt" json:"admission_fee_exempt"`
	StartMonthIndex     int                `db:"start_month_index" json:"start_month_index"`
	PensionGeneral      float64            `db:"pension_general" json:"pension_general"`
	PensionCustomized   bool               `db:"pension_customized" json:"pension_customized"`
	PensionMonths       MonthlySchedule    `db:"pension_months" json:"pension_months"`
}

// EnrollmentCase is one enrollment transaction: a family enrolling one or
// more students into a campus for an academic cycle. ID is empty until the
// draft is first persisted.
type EnrollmentCase struct {
	ID          string             `db:"id" json:"id"`
	CycleID     string             `db:"cycle_id" json:"cycle_id"`
	CampusCode  string             `db:"campus_code" json:"campus_code"`
	FamilyID    string             `db:"family_id" json:"family_id"`
	Status      CaseStatus         `db:"status" json:"status"`
	Students    []StudentAgreement `db:"-" json:"students"`
	ConfirmedAt *time.Time         `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// Clone deep-copies the case so session snapshots cannot alias the working
// draft.
func (c EnrollmentCase) Clone() EnrollmentCase {
	out := c
	out.Students = make([]StudentAgreement, len(c.Students))
	for i, st := range c.Students {
		st.PensionMonths = st.PensionMonths.Clone()
		if st.EnrollmentStudentID != nil {
			id := *st.EnrollmentStudentID
			st.EnrollmentStudentID = &id
		}
		out.Students[i] = st
	}
	if c.ConfirmedAt != nil {
		t := *c.ConfirmedAt
		out.ConfirmedAt = &t
	}
	return out
}

// StudentByLocalID returns the agreement for the given slot, or nil.
func (c *EnrollmentCase) StudentByLocalID(localID string) *StudentAgreement {
	for i := range c.Students {
		if c.Students[i].LocalID == localID {
			return &c.Students[i]
		}
	}
	return nil
}

// HasStudent reports whether the underlying student is already on the case.
func (c *EnrollmentCase) HasStudent(studentID string) bool {
	for i := range c.Students {
		if c.Students[i].StudentID == studentID {
			return true
		}
	}
	return false
}

// ConfirmationSummary reports what a confirmed case produced server-side.
type ConfirmationSummary struct {
	StudentsConfirmed int `db:"students_confirmed" json:"students_confirmed"`
	ChargesCreated    int `db:"charges_created" json:"charges_created"`
}
