package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

type familyRepository interface {
	List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error)
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

// FamilyService serves the family picker of the enrollment form.
type FamilyService struct {
	repo   familyRepository
	logger *zap.Logger
}

// NewFamilyService constructs FamilyService.
func NewFamilyService(repo familyRepository, logger *zap.Logger) *FamilyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FamilyService{repo: repo, logger: logger}
}

// List returns families with pagination metadata.
func (s *FamilyService) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, *models.Pagination, error) {
	families, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list families")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return families, pagination, nil
}

// Get returns one family.
func (s *FamilyService) Get(ctx context.Context, id string) (*models.Family, error) {
	family, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	return family, nil
}
