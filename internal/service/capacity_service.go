package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

type capacityRepository interface {
	Capacity(ctx context.Context, classroomID string) (*models.ClassroomCapacityRecord, error)
}

// CapacityService is the classroom capacity lookup. It normalizes the
// repository's partial wire shape into the strict internal one immediately on
// receipt, so no consumer ever branches on field presence, and keeps a short
// lived cache in front of the seat-count query.
type CapacityService struct {
	repo    capacityRepository
	cache   *CacheService
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(repo capacityRepository, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CapacityService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// ClassroomCapacity resolves the current seat counts for a classroom.
func (s *CapacityService) ClassroomCapacity(ctx context.Context, classroomID string) (*models.ClassroomCapacity, error) {
	capacity, _, err := s.ClassroomCapacityCached(ctx, classroomID)
	return capacity, err
}

// ClassroomCapacityCached resolves the current seat counts for a classroom
// and reports whether they were served from cache.
func (s *CapacityService) ClassroomCapacityCached(ctx context.Context, classroomID string) (*models.ClassroomCapacity, bool, error) {
	if classroomID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "classroom id is required")
	}

	key := capacityCacheKey(classroomID)
	var cached models.ClassroomCapacity
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	record, err := s.repo.Capacity(ctx, classroomID)
	if err != nil {
		s.metrics.RecordCapacityLookup(false)
		return nil, false, err
	}
	capacity := record.Normalize()
	s.metrics.RecordCapacityLookup(true)

	if err := s.cache.Set(ctx, key, capacity, s.ttl); err != nil {
		s.logger.Warn("capacity cache write failed", zap.String("classroom_id", classroomID), zap.Error(err))
	}
	return &capacity, false, nil
}

// InvalidateClassroom drops the cached counts for a classroom, used after
// confirmations change the occupied totals.
func (s *CapacityService) InvalidateClassroom(ctx context.Context, classroomID string) {
	if err := s.cache.Invalidate(ctx, capacityCacheKey(classroomID)); err != nil {
		s.logger.Warn("capacity cache invalidate failed", zap.String("classroom_id", classroomID), zap.Error(err))
	}
}

func capacityCacheKey(classroomID string) string {
	return fmt.Sprintf("capacity:classroom:%s", classroomID)
}
