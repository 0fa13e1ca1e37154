package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/models"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	byStatus   []models.CountRow
	byType     []models.CountRow
	byPriority []models.CountRow
	calls      int
	err        error
}

func (m *mockAnalyticsRepo) CountByStatus(ctx context.Context) ([]models.CountRow, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.byStatus, nil
}

func (m *mockAnalyticsRepo) CountByIncidentType(ctx context.Context) ([]models.CountRow, error) {
	return m.byType, nil
}

func (m *mockAnalyticsRepo) CountByPriority(ctx context.Context) ([]models.CountRow, error) {
	return m.byPriority, nil
}

type stubUnreadCounter struct {
	count     int
	lastScope models.NotificationScope
}

func (s *stubUnreadCounter) CountUnread(ctx context.Context, scope models.NotificationScope) (int, error) {
	s.lastScope = scope
	return s.count, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func newCachedAnalytics(repo *mockAnalyticsRepo, unread *stubUnreadCounter) *AnalyticsService {
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	return NewAnalyticsService(repo, unread, cacheSvc, NewMetricsService(), zap.NewNop())
}

func TestAnalyticsServiceSummary(t *testing.T) {
	repo := &mockAnalyticsRepo{
		byStatus:   []models.CountRow{{Key: "PENDING", Count: 3}, {Key: "RESOLVED", Count: 2}},
		byType:     []models.CountRow{{Key: "exam_cheating", Count: 5}},
		byPriority: []models.CountRow{{Key: "HIGH", Count: 1}, {Key: "MEDIUM", Count: 4}},
	}
	unread := &stubUnreadCounter{count: 7}
	svc := newCachedAnalytics(repo, unread)

	summary, hit, err := svc.Summary(context.Background(), adminActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 5, summary.TotalReports)
	assert.Equal(t, 1, summary.HighPriority)
	assert.Equal(t, 0, summary.ByStatus["UNDER_REVIEW"])
	assert.Equal(t, 0, summary.ByIncidentType["other"])
	assert.Equal(t, 7, summary.UnreadNotifications)
	assert.True(t, unread.lastScope.All)
}

func TestAnalyticsServiceSummaryCaching(t *testing.T) {
	repo := &mockAnalyticsRepo{byStatus: []models.CountRow{{Key: "PENDING", Count: 1}}}
	svc := newCachedAnalytics(repo, &stubUnreadCounter{})
	ctx := context.Background()

	_, hit, err := svc.Summary(ctx, adminActor)
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := svc.Summary(ctx, adminActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, cached.TotalReports)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate(ctx)
	_, hit, err = svc.Summary(ctx, adminActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestAnalyticsServiceSummaryDenied(t *testing.T) {
	svc := newCachedAnalytics(&mockAnalyticsRepo{}, nil)
	_, _, err := svc.Summary(context.Background(), lecturerActor)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = svc.SystemMetrics(nil)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestAnalyticsServiceSummaryStoreError(t *testing.T) {
	cause := errors.New("count by status: connection refused")
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewAnalyticsService(&mockAnalyticsRepo{err: cause}, nil, cacheSvc, nil, nil)

	_, _, err := svc.Summary(context.Background(), adminActor)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "count by status: connection refused", appErrors.FromError(err).Message)
}
