package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/pkg/config"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
)

func newLedgerFixture(activityRepo *mockActivityRepo, rulesCfg config.RulesConfig) *LedgerService {
	catalog := NewCatalogService(seedCatalogRepo(), nil, nil, nil, time.Minute)
	return NewLedgerService(activityRepo, catalog, nil, nil, rulesCfg)
}

func TestBuildAppliesCreditFactors(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a1", StudentID: "s1", TypeID: "type-tcc", Hours: 4, Status: models.StatusApproved,
	}}
	activityRepo.stored["a2"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a2", StudentID: "s1", TypeID: "type-artigos", Hours: 6, Status: models.StatusPending, External: true,
	}}
	svc := newLedgerFixture(activityRepo, config.RulesConfig{CountPending: true})

	ledger, _, err := svc.Build(context.Background(), "s1")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ledger.TypeTotal("Pesquisa", "Defesas de TCC"), 1e-9)
	assert.InDelta(t, 6.0, ledger.TypeTotal("Pesquisa", "Publicação de Artigos"), 1e-9)
	assert.InDelta(t, 8.0, ledger.CategoryTotal("Pesquisa"), 1e-9)
	assert.InDelta(t, 6.0, ledger.ExternalTotal(), 1e-9)
}

func TestBuildIgnoresPendingWhenPolicySaysSo(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a1", StudentID: "s1", TypeID: "type-artigos", Hours: 6, Status: models.StatusPending,
	}}
	svc := newLedgerFixture(activityRepo, config.RulesConfig{CountPending: false})

	ledger, _, err := svc.Build(context.Background(), "s1")
	require.NoError(t, err)
	assert.Zero(t, ledger.GrandTotal())
}

func TestBuildFailsClosedOnUnknownType(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a1", StudentID: "s1", TypeID: "type-ghost", Hours: 6, Status: models.StatusApproved,
	}}
	svc := newLedgerFixture(activityRepo, config.RulesConfig{CountPending: true})

	_, _, err := svc.Build(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrLookupFailure))
}

func TestDashboardSummarisesProgress(t *testing.T) {
	activityRepo := newMockActivityRepo()
	activityRepo.stored["a1"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a1", StudentID: "s1", TypeID: "type-monitoria", Hours: 40, Status: models.StatusApproved,
	}}
	activityRepo.stored["a2"] = models.ActivityDetail{Activity: models.Activity{
		ID: "a2", StudentID: "s1", TypeID: "type-monitoria", Hours: 10, Status: models.StatusRejected,
	}}
	svc := newLedgerFixture(activityRepo, config.RulesConfig{CountPending: true, TotalHoursTarget: 545})

	dashboard, err := svc.Dashboard(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.StatusCounts.Approved)
	assert.Equal(t, 1, dashboard.StatusCounts.Rejected)
	assert.Equal(t, 0, dashboard.StatusCounts.Pending)
	assert.InDelta(t, 40.0, dashboard.TotalCredited, 1e-9)
	assert.InDelta(t, 545.0, dashboard.TargetHours, 1e-9)
	assert.InDelta(t, 505.0, dashboard.RemainingHours, 1e-9)

	require.Len(t, dashboard.Categories, 2)
	ensino := dashboard.Categories[0]
	assert.Equal(t, "Ensino", ensino.CategoryName)
	assert.InDelta(t, 40.0, ensino.CreditedHours, 1e-9)
	assert.InDelta(t, 50.0, ensino.RemainingRoom, 1e-9)
	require.Len(t, ensino.Types, 1)
	assert.InDelta(t, 20.0, ensino.Types[0].RemainingRoom, 1e-9)
}
