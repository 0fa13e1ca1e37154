package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

const (
	analyticsCachePattern = "analytics:*"
	analyticsSummaryKey   = "analytics:summary"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	CountByStatus(ctx context.Context) ([]models.CountRow, error)
	CountByIncidentType(ctx context.Context) ([]models.CountRow, error)
	CountByPriority(ctx context.Context) ([]models.CountRow, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, scope models.NotificationScope) (int, error)
}

// AnalyticsService provides read-optimised access to report counts with cache integration.
type AnalyticsService struct {
	repo          AnalyticsRepository
	notifications unreadCounter
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, notifications unreadCounter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, notifications: notifications, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Summary returns dashboard counts. The boolean reports whether the report
// counts came from cache; the unread count is always read live.
func (s *AnalyticsService) Summary(ctx context.Context, actor *models.JWTClaims) (*models.AnalyticsSummary, bool, error) {
	if !policy.CanViewAnalytics(actor) {
		return nil, false, permissionDenied("not allowed to view analytics")
	}

	summary, hit, err := remember(ctx, s.cache, analyticsSummaryKey, 0, s.computeSummary)
	if err != nil {
		return nil, false, err
	}

	if s.notifications != nil {
		unread, err := s.notifications.CountUnread(ctx, notificationScope(actor, false))
		if err != nil {
			return nil, false, appErrors.Store(err)
		}
		summary.UnreadNotifications = unread
	}

	return &summary, hit, nil
}

// SystemMetrics exposes the in-process counters to administrators.
func (s *AnalyticsService) SystemMetrics(actor *models.JWTClaims) (models.SystemMetrics, error) {
	if !policy.CanViewAnalytics(actor) {
		return models.SystemMetrics{}, permissionDenied("not allowed to view analytics")
	}
	return s.metrics.Snapshot(), nil
}

// Invalidate drops every cached analytics entry.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, analyticsCachePattern)
}

func (s *AnalyticsService) computeSummary(ctx context.Context) (models.AnalyticsSummary, error) {
	summary := models.AnalyticsSummary{
		ByStatus:       zeroCounts(models.ReportStatuses),
		ByIncidentType: zeroCounts(models.IncidentTypes),
		ByPriority:     zeroCounts(models.ReportPriorities),
		GeneratedAt:    s.now().UTC(),
	}

	queries := []struct {
		label string
		run   func(context.Context) ([]models.CountRow, error)
		into  map[string]int
	}{
		{"analytics_status", s.repo.CountByStatus, summary.ByStatus},
		{"analytics_incident_type", s.repo.CountByIncidentType, summary.ByIncidentType},
		{"analytics_priority", s.repo.CountByPriority, summary.ByPriority},
	}
	for _, q := range queries {
		start := time.Now()
		rows, err := q.run(ctx)
		if err != nil {
			return models.AnalyticsSummary{}, appErrors.Store(err)
		}
		s.metrics.ObserveDBQuery(q.label, time.Since(start))
		for _, row := range rows {
			q.into[row.Key] += row.Count
		}
	}

	for _, n := range summary.ByStatus {
		summary.TotalReports += n
	}
	summary.HighPriority = summary.ByPriority[string(models.PriorityHigh)]
	return summary, nil
}

func zeroCounts[T ~string](keys []T) map[string]int {
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[string(k)] = 0
	}
	return out
}
