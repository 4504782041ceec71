package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

func newReviewFixture(activityRepo *mockActivityRepo) *ReviewService {
	catalog := NewCatalogService(seedCatalogRepo(), nil, nil, nil, time.Minute)
	ledger := NewLedgerService(activityRepo, catalog, nil, nil, config.RulesConfig{CountPending: true})
	return NewReviewService(activityRepo, ledger, nil, nil, nil)
}

func pendingActivity(id, studentID string) models.ActivityDetail {
	return models.ActivityDetail{Activity: models.Activity{
		ID: id, StudentID: studentID, TypeID: "type-artigos", Hours: 5, Status: models.StatusPending,
	}}
}

func TestApprovePendingActivity(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = pendingActivity("a1", "s1")
	svc := newReviewFixture(activityRepo)

	detail, err := svc.Approve(context.Background(), "rev1", "a1", dto.ReviewRequest{Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, detail.Status)
	require.NotNil(t, detail.ReviewedBy)
	assert.Equal(t, "rev1", *detail.ReviewedBy)
}

func TestRejectRequiresComment(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = pendingActivity("a1", "s1")
	svc := newReviewFixture(activityRepo)

	_, err := svc.Reject(context.Background(), "rev1", "a1", dto.ReviewRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	detail, err := svc.Reject(context.Background(), "rev1", "a1", dto.ReviewRequest{Comment: "certificado ilegível"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, detail.Status)
	require.NotNil(t, detail.ReviewComment)
	assert.Equal(t, "certificado ilegível", *detail.ReviewComment)
}

func TestReviewAlreadyReviewedConflicts(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activity := pendingActivity("a1", "s1")
	activity.Status = models.StatusApproved
	activityRepo.stored["a1"] = activity
	svc := newReviewFixture(activityRepo)

	_, err := svc.Approve(context.Background(), "rev1", "a1", dto.ReviewRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestReviewUnknownActivity(t *testing.T) {
	svc := newReviewFixture(newMockActivityRepo())

	_, err := svc.Approve(context.Background(), "rev1", "missing", dto.ReviewRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestQueueDefaultsToPending(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = pendingActivity("a1", "s1")
	approved := pendingActivity("a2", "s1")
	approved.Status = models.StatusApproved
	activityRepo.stored["a2"] = approved
	svc := newReviewFixture(activityRepo)

	resp, err := svc.Queue(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, "a1", resp.Activities[0].ID)
	assert.Equal(t, 1, resp.Pagination.TotalCount)
}
