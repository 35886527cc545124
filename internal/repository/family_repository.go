package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// FamilyRepository handles family master data lookups.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs the repository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// List returns families filtered by the provided criteria.
func (r *FamilyRepository) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	base := `FROM families f`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(f.name ILIKE $%d OR f.contact_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("f.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "f.name",
		"created_at": "f.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "f.name"
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

	query := fmt.Sprintf(`SELECT f.id, f.name, f.contact_name, f.contact_phone, f.contact_email, f.active, f.created_at, f.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}
	return families, total, nil
}

// FindByID returns a family by its ID.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	const query = `SELECT id, name, contact_name, contact_phone, contact_email, active, created_at, updated_at
        FROM families WHERE id = $1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		return nil, err
	}
	return &family, nil
}
