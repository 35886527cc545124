package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// CaseRepository handles persistence of enrollment cases: draft upserts,
// confirmation and the charges materialized by it.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

type caseStudentRow struct {
	ID                  string          `db:"id"`
	CaseID              string          `db:"case_id"`
	StudentID           string          `db:"student_id"`
	ClassroomID         string          `db:"classroom_id"`
	PreviousSchoolType  string          `db:"previous_school_type"`
	PreviousSchoolName  string          `db:"previous_school_name"`
	EnrollmentFeeAmount float64         `db:"enrollment_fee_amount"`
	EnrollmentFeeExempt bool            `db:"enrollment_fee_exempt"`
	AdmissionFeeAmount  float64         `db:"admission_fee_amount"`
	AdmissionFeeExempt  bool            `db:"admission_fee_exempt"`
	StartMonthIndex     int             `db:"start_month_index"`
	PensionGeneral      float64         `db:"pension_general"`
	PensionCustomized   bool            `db:"pension_customized"`
	PensionMonths       pq.Float64Array `db:"pension_months"`
}

func (row caseStudentRow) toAgreement() models.StudentAgreement {
	id := row.ID
	return models.StudentAgreement{
		LocalID:             row.ID,
		EnrollmentStudentID: &id,
		StudentID:           row.StudentID,
		ClassroomID:         row.ClassroomID,
		PreviousSchoolType:  models.PreviousSchoolType(row.PreviousSchoolType),
		PreviousSchoolName:  row.PreviousSchoolName,
		EnrollmentFeeAmount: row.EnrollmentFeeAmount,
		EnrollmentFeeExempt: row.EnrollmentFeeExempt,
		AdmissionFeeAmount:  row.AdmissionFeeAmount,
		AdmissionFeeExempt:  row.AdmissionFeeExempt,
		StartMonthIndex:     row.StartMonthIndex,
		PensionGeneral:      row.PensionGeneral,
		PensionCustomized:   row.PensionCustomized,
		PensionMonths:       models.MonthlySchedule(row.PensionMonths),
	}
}

// CreateDraft inserts a new draft case with its students, assigning ids.
func (r *CaseRepository) CreateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create draft: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	draft.ID = uuid.NewString()
	draft.Status = models.CaseStatusDraft
	draft.CreatedAt = now
	draft.UpdatedAt = now

	const insertCase = `INSERT INTO enrollment_cases (id, cycle_id, campus_code, family_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertCase, draft.ID, draft.CycleID, draft.CampusCode, draft.FamilyID, draft.Status, draft.CreatedAt, draft.UpdatedAt); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	for i := range draft.Students {
		if err := upsertCaseStudent(ctx, tx, draft.ID, &draft.Students[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create draft: %w", err)
	}
	return nil
}

// UpdateDraft upserts the draft's fields and student list. Students no longer
// present in the draft are deleted; existing ones keep their persisted ids.
func (r *CaseRepository) UpdateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update draft: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	draft.UpdatedAt = time.Now().UTC()
	const updateCase = `UPDATE enrollment_cases
        SET cycle_id = $2, campus_code = $3, family_id = $4, updated_at = $5
        WHERE id = $1 AND status = $6`
	result, err := tx.ExecContext(ctx, updateCase, draft.ID, draft.CycleID, draft.CampusCode, draft.FamilyID, draft.UpdatedAt, models.CaseStatusDraft)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	kept := make([]string, 0, len(draft.Students))
	for i := range draft.Students {
		if err := upsertCaseStudent(ctx, tx, draft.ID, &draft.Students[i]); err != nil {
			return err
		}
		kept = append(kept, *draft.Students[i].EnrollmentStudentID)
	}
	const prune = `DELETE FROM enrollment_case_students WHERE case_id = $1 AND NOT (id = ANY($2))`
	if _, err := tx.ExecContext(ctx, prune, draft.ID, pq.Array(kept)); err != nil {
		return fmt.Errorf("prune case students: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update draft: %w", err)
	}
	return nil
}

func upsertCaseStudent(ctx context.Context, tx *sqlx.Tx, caseID string, student *models.StudentAgreement) error {
	if student.EnrollmentStudentID == nil {
		id := uuid.NewString()
		student.EnrollmentStudentID = &id
	}
	const query = `INSERT INTO enrollment_case_students
        (id, case_id, student_id, classroom_id, previous_school_type, previous_school_name,
         enrollment_fee_amount, enrollment_fee_exempt, admission_fee_amount, admission_fee_exempt,
         start_month_index, pension_general, pension_customized, pension_months)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (id) DO UPDATE SET
         classroom_id = EXCLUDED.classroom_id,
         previous_school_type = EXCLUDED.previous_school_type,
         previous_school_name = EXCLUDED.previous_school_name,
         enrollment_fee_amount = EXCLUDED.enrollment_fee_amount,
         enrollment_fee_exempt = EXCLUDED.enrollment_fee_exempt,
         admission_fee_amount = EXCLUDED.admission_fee_amount,
         admission_fee_exempt = EXCLUDED.admission_fee_exempt,
         start_month_index = EXCLUDED.start_month_index,
         pension_general = EXCLUDED.pension_general,
         pension_customized = EXCLUDED.pension_customized,
         pension_months = EXCLUDED.pension_months`
	_, err := tx.ExecContext(ctx, query,
		*student.EnrollmentStudentID, caseID, student.StudentID, student.ClassroomID,
		student.PreviousSchoolType, student.PreviousSchoolName,
		student.EnrollmentFeeAmount, student.EnrollmentFeeExempt,
		student.AdmissionFeeAmount, student.AdmissionFeeExempt,
		student.StartMonthIndex, student.PensionGeneral, student.PensionCustomized,
		pq.Float64Array(student.PensionMonths))
	if err != nil {
		return fmt.Errorf("upsert case student: %w", err)
	}
	return nil
}

// FindDraft loads a persisted case with its students.
func (r *CaseRepository) FindDraft(ctx context.Context, id string) (*models.EnrollmentCase, error) {
	const caseQuery = `SELECT id, cycle_id, campus_code, family_id, status, confirmed_at, created_at, updated_at
        FROM enrollment_cases WHERE id = $1`
	var enrollmentCase models.EnrollmentCase
	if err := r.db.GetContext(ctx, &enrollmentCase, caseQuery, id); err != nil {
		return nil, err
	}

	const studentsQuery = `SELECT id, case_id, student_id, classroom_id, previous_school_type, previous_school_name,
        enrollment_fee_amount, enrollment_fee_exempt, admission_fee_amount, admission_fee_exempt,
        start_month_index, pension_general, pension_customized, pension_months
        FROM enrollment_case_students WHERE case_id = $1 ORDER BY student_id`
	var rows []caseStudentRow
	if err := r.db.SelectContext(ctx, &rows, studentsQuery, id); err != nil {
		return nil, fmt.Errorf("load case students: %w", err)
	}
	enrollmentCase.Students = make([]models.StudentAgreement, 0, len(rows))
	for _, row := range rows {
		enrollmentCase.Students = append(enrollmentCase.Students, row.toAgreement())
	}
	return &enrollmentCase, nil
}

// ConfirmCase finalizes a draft: it flips the status and materializes one
// charge per billable pension month plus the non-exempt enrollment and
// admission fees. Returns what was produced.
func (r *CaseRepository) ConfirmCase(ctx context.Context, id string) (*models.ConfirmationSummary, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const confirm = `UPDATE enrollment_cases SET status = $2, confirmed_at = $3, updated_at = $3
        WHERE id = $1 AND status = $4`
	result, err := tx.ExecContext(ctx, confirm, id, models.CaseStatusConfirmed, now, models.CaseStatusDraft)
	if err != nil {
		return nil, fmt.Errorf("confirm case: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, sql.ErrNoRows
	}

	const studentsQuery = `SELECT id, case_id, student_id, classroom_id, previous_school_type, previous_school_name,
        enrollment_fee_amount, enrollment_fee_exempt, admission_fee_amount, admission_fee_exempt,
        start_month_index, pension_general, pension_customized, pension_months
        FROM enrollment_case_students WHERE case_id = $1`
	var rows []caseStudentRow
	if err := tx.SelectContext(ctx, &rows, studentsQuery, id); err != nil {
		return nil, fmt.Errorf("load case students: %w", err)
	}

	const insertCharge = `INSERT INTO student_charges (id, case_id, case_student_id, student_id, concept, month_index, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	charges := 0
	for _, row := range rows {
		for monthIndex, amount := range row.PensionMonths {
			if amount == models.NotCharged || amount <= 0 {
				continue
			}
			idx := monthIndex
			if _, err := tx.ExecContext(ctx, insertCharge, uuid.NewString(), id, row.ID, row.StudentID, chargeConceptPension, &idx, amount, now); err != nil {
				return nil, fmt.Errorf("insert pension charge: %w", err)
			}
			charges++
		}
		if !row.EnrollmentFeeExempt && row.EnrollmentFeeAmount > 0 {
			if _, err := tx.ExecContext(ctx, insertCharge, uuid.NewString(), id, row.ID, row.StudentID, chargeConceptEnrollment, nil, row.EnrollmentFeeAmount, now); err != nil {
				return nil, fmt.Errorf("insert enrollment charge: %w", err)
			}
			charges++
		}
		if models.PreviousSchoolType(row.PreviousSchoolType) == models.SchoolTypeOther && !row.AdmissionFeeExempt && row.AdmissionFeeAmount > 0 {
			if _, err := tx.ExecContext(ctx, insertCharge, uuid.NewString(), id, row.ID, row.StudentID, chargeConceptAdmission, nil, row.AdmissionFeeAmount, now); err != nil {
				return nil, fmt.Errorf("insert admission charge: %w", err)
			}
			charges++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}
	return &models.ConfirmationSummary{StudentsConfirmed: len(rows), ChargesCreated: charges}, nil
}

// Charge concepts materialized at confirmation.
const (
	chargeConceptPension    = "PENSION"
	chargeConceptEnrollment = "ENROLLMENT_FEE"
	chargeConceptAdmission  = "ADMISSION_FEE"
)

// RemoveStudent deletes one persisted student slot from a draft case.
func (r *CaseRepository) RemoveStudent(ctx context.Context, caseID, enrollmentStudentID string) error {
	const query = `DELETE FROM enrollment_case_students s
        USING enrollment_cases c
        WHERE s.id = $2 AND s.case_id = $1 AND c.id = s.case_id AND c.status = $3`
	result, err := r.db.ExecContext(ctx, query, caseID, enrollmentStudentID, models.CaseStatusDraft)
	if err != nil {
		return fmt.Errorf("remove case student: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
