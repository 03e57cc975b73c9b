package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

func newStreamFixture(snapshots accessSnapshotLoader) (*StreamService, *memoryStore, *MetricsService) {
	store := newMemoryStore()
	seedCourse(store)
	if snapshots == nil {
		snapshots = store
	}
	metrics := NewMetricsService()
	access := NewAccessService(store, snapshots, metrics, nil)
	return NewStreamService(access, metrics, nil), store, metrics
}

func TestStreamAuthorizeFreeEpisode(t *testing.T) {
	svc, _, metrics := newStreamFixture(nil)

	grant, err := svc.Authorize(context.Background(), "u1", "ep-free")
	require.NoError(t, err)
	assert.Equal(t, "VIMEO", grant.VideoProvider)
	assert.Equal(t, "111", grant.VideoRef)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.streamDecisions.WithLabelValues(StreamOutcomeGranted)))
}

func TestStreamAuthorizeLockedAndPending(t *testing.T) {
	svc, store, metrics := newStreamFixture(nil)
	ctx := context.Background()

	grant, err := svc.Authorize(ctx, "u1", "ep-paid")
	require.Error(t, err)
	assert.Nil(t, grant)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 403, appErr.Status)
	assert.Equal(t, "payment required or pending approval", appErr.Message)

	require.NoError(t, store.Create(ctx, &models.Purchase{UserID: "u1", ItemType: models.ItemTypeSeason, ItemID: "season-1", Amount: "500"}))
	_, err = svc.Authorize(ctx, "u1", "ep-paid")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.streamDecisions.WithLabelValues(StreamOutcomeDenied)))
}

func TestStreamAuthorizeSeasonGrant(t *testing.T) {
	svc, store, _ := newStreamFixture(nil)
	ctx := context.Background()
	require.NoError(t, memoryGrants{store}.Create(ctx, &models.AccessGrant{UserID: "u1", ItemType: models.ItemTypeSeason, ItemID: "season-1", GrantedBy: models.GrantedBySystem}))

	grant, err := svc.Authorize(ctx, "u1", "ep-paid")
	require.NoError(t, err)
	assert.Equal(t, "222", grant.VideoRef)
}

func TestStreamAuthorizeUnknownEpisode(t *testing.T) {
	svc, _, metrics := newStreamFixture(nil)

	_, err := svc.Authorize(context.Background(), "u1", "nope")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.streamDecisions.WithLabelValues(StreamOutcomeNotFound)))
}

func TestStreamAuthorizeDeniesOnStoreFailure(t *testing.T) {
	svc, _, metrics := newStreamFixture(failingSnapshots{})

	grant, err := svc.Authorize(context.Background(), "u1", "ep-paid")
	assert.Nil(t, grant)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.streamDecisions.WithLabelValues(StreamOutcomeError)))
}
