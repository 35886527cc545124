package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// ClassroomRepository handles the classroom catalog and seat counting.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms filtered by the provided criteria.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := `FROM classrooms c`
	var conditions []string
	var args []interface{}

	if filter.CycleID != "" {
		conditions = append(conditions, fmt.Sprintf("c.cycle_id = $%d", len(args)+1))
		args = append(args, filter.CycleID)
	}
	if filter.CampusCode != "" {
		conditions = append(conditions, fmt.Sprintf("c.campus_code = $%d", len(args)+1))
		args = append(args, filter.CampusCode)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("c.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"grade_level": "c.grade_level",
		"section":     "c.section",
		"capacity":    "c.capacity",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "grade_level"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.grade_level"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.cycle_id, c.campus_code, c.grade_level, c.section, c.capacity, c.active, c.created_at, c.updated_at
        %s ORDER BY %s %s, c.section ASC LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}
	return classrooms, total, nil
}

// FindByID returns a classroom by its ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, cycle_id, campus_code, grade_level, section, capacity, active, created_at, updated_at
        FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Capacity returns the classroom's seat counters: declared capacity, seats
// occupied by confirmed cases and seats reserved by other open drafts. The
// row comes back partial when counters cannot be derived, which the caller
// normalizes.
func (r *ClassroomRepository) Capacity(ctx context.Context, classroomID string) (*models.ClassroomCapacityRecord, error) {
	const query = `SELECT c.id AS classroom_id, c.capacity,
        (SELECT COUNT(*) FROM enrollment_case_students s
         JOIN enrollment_cases ec ON ec.id = s.case_id
         WHERE s.classroom_id = c.id AND ec.status = $2) AS occupied,
        (SELECT COUNT(*) FROM enrollment_case_students s
         JOIN enrollment_cases ec ON ec.id = s.case_id
         WHERE s.classroom_id = c.id AND ec.status = $3) AS reserved
        FROM classrooms c WHERE c.id = $1`
	var record models.ClassroomCapacityRecord
	if err := r.db.GetContext(ctx, &record, query, classroomID, models.CaseStatusConfirmed, models.CaseStatusDraft); err != nil {
		return nil, err
	}
	return &record, nil
}
