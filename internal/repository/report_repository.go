package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultReportTTL is how long a batch report stays retrievable
const DefaultReportTTL = 24 * time.Hour

// ErrReportNotFound is returned for unknown or expired report IDs
var ErrReportNotFound = errors.New("import report not found")

// ReportRepository keeps batch results in Redis so the admin UI can fetch
// them after the request that produced them has finished
type ReportRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewReportRepository(redis *redis.Client, ttl time.Duration) *ReportRepository {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportRepository{redis: redis, ttl: ttl}
}

func reportKey(id string) string {
	return fmt.Sprintf("catalog:import-report:%s", id)
}

// SaveReport stores the result under a new report ID and returns it
func (r *ReportRepository) SaveReport(ctx context.Context, result *models.BatchResult) (string, error) {
	if r == nil || r.redis == nil {
		return "", errors.New("report storage not configured")
	}

	id := uuid.New().String()
	result.ReportID = id

	data, err := json.Marshal(result)
	if err != nil {
		result.ReportID = ""
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := r.redis.Set(ctx, reportKey(id), data, r.ttl).Err(); err != nil {
		result.ReportID = ""
		return "", fmt.Errorf("failed to store report: %w", err)
	}
	return id, nil
}

// GetReport loads a previously saved result
func (r *ReportRepository) GetReport(ctx context.Context, id string) (*models.BatchResult, error) {
	if r == nil || r.redis == nil {
		return nil, ErrReportNotFound
	}

	val, err := r.redis.Get(ctx, reportKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	var result models.BatchResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &result, nil
}
