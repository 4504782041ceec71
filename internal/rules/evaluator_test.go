package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-uemg/horas-api/internal/models"
)

func testCatalog() *Catalog {
	categories := []models.Category{
		{ID: "cat-pesquisa", Name: "Pesquisa", HourLimit: 90},
		{ID: "cat-ensino", Name: "Ensino", HourLimit: 90},
	}
	types := []models.ActivityType{
		{ID: "type-artigos", CategoryID: "cat-pesquisa", Name: "Publicação de Artigos", CreditFactor: 1, MaxHours: 10},
		{ID: "type-tcc", CategoryID: "cat-pesquisa", Name: "Defesas de TCC", CreditFactor: 0.5, MaxHours: 3},
		{ID: "type-monitoria", CategoryID: "cat-ensino", Name: "Monitoria", CreditFactor: 1, MaxHours: 60},
	}
	return NewCatalog(categories, types)
}

func TestEvaluateAcceptsWithinLimits(t *testing.T) {
	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 8}, NewLedger(), testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
	assert.InDelta(t, 8.0, d.CreditedHours, 1e-9)
	assert.Empty(t, d.Reason)
}

func TestEvaluateAppliesCreditFactor(t *testing.T) {
	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Defesas de TCC", Hours: 4}, NewLedger(), testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
	assert.InDelta(t, 2.0, d.CreditedHours, 1e-9)
}

func TestEvaluatePartiallyCapsOnTypeLimit(t *testing.T) {
	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 15}, NewLedger(), testCatalog())

	require.Equal(t, DecisionPartiallyCapped, d.Kind)
	assert.InDelta(t, 10.0, d.MaxAdditionalRawHours, 1e-9)
	assert.Zero(t, d.CreditedHours)
}

func TestEvaluateRejectsWhenTypeExhausted(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Publicação de Artigos", 10, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 1}, ledger, testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonTypeLimitReached, d.Reason)
}

func TestEvaluateRejectsWhenCategoryExhausted(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 60, false)
	ledger.Add("Ensino", "Outro", 30, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Ensino", TypeName: "Monitoria", Hours: 5}, ledger, testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonCategoryLimitReached, d.Reason)
}

func TestEvaluateCategoryCapChecksBeforeTypeCap(t *testing.T) {
	// Both caps are exhausted; the category check runs first.
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Publicação de Artigos", 10, false)
	ledger.Add("Pesquisa", "Outro", 80, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 1}, ledger, testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonCategoryLimitReached, d.Reason)
}

func TestEvaluateRejectsNonPositiveHours(t *testing.T) {
	var e Evaluator
	catalog := testCatalog()

	for _, hours := range []float64{-5, 0, math.NaN(), math.Inf(1)} {
		d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: hours}, NewLedger(), catalog)
		require.Equal(t, DecisionRejected, d.Kind)
		assert.Equal(t, ReasonInvalidHours, d.Reason)
	}
}

func TestEvaluateRejectsUnknownCategoryAndType(t *testing.T) {
	var e Evaluator
	catalog := testCatalog()

	d := e.Evaluate(Submission{CategoryName: "Esportes", TypeName: "Publicação de Artigos", Hours: 5}, NewLedger(), catalog)
	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonInvalidCategoryOrType, d.Reason)

	d = e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Maratona de Programação", Hours: 5}, NewLedger(), catalog)
	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonInvalidCategoryOrType, d.Reason)

	// Type exists, but under a different category.
	d = e.Evaluate(Submission{CategoryName: "Ensino", TypeName: "Publicação de Artigos", Hours: 5}, NewLedger(), catalog)
	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonInvalidCategoryOrType, d.Reason)
}

func TestEvaluateInvalidNamesWinOverInvalidHours(t *testing.T) {
	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Esportes", TypeName: "Xadrez", Hours: -1}, NewLedger(), testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonInvalidCategoryOrType, d.Reason)
}

func TestEvaluateAcceptsExactRemainingRoom(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Publicação de Artigos", 7, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 3}, ledger, testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
	assert.InDelta(t, 3.0, d.CreditedHours, 1e-9)
}

func TestEvaluateFloorsAllowanceToWholeRawHours(t *testing.T) {
	// 2.5 credited hours remain on the type; at factor 0.5 that is 5 raw
	// hours, so a 12-hour request caps at 5 whole hours.
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Defesas de TCC", 0.5, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Defesas de TCC", Hours: 12}, ledger, testCatalog())

	require.Equal(t, DecisionPartiallyCapped, d.Kind)
	assert.InDelta(t, 5.0, d.MaxAdditionalRawHours, 1e-9)
}

func TestEvaluateRejectsWhenRoomFloorsToZero(t *testing.T) {
	// 0.25 credited hours remain, which at factor 0.5 is half a raw hour:
	// not representable, so nothing can be submitted.
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Defesas de TCC", 2.75, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Defesas de TCC", Hours: 2}, ledger, testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonNoCreditableRoom, d.Reason)
}

func TestEvaluateIsCaseAndSpaceInsensitive(t *testing.T) {
	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "  pesquisa ", TypeName: "PUBLICAÇÃO DE ARTIGOS", Hours: 2}, NewLedger(), testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
}

func TestEvaluateDoesNotMutateLedger(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Pesquisa", "Publicação de Artigos", 4, false)

	var e Evaluator
	catalog := testCatalog()
	first := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 3}, ledger, catalog)
	second := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 3}, ledger, catalog)

	assert.Equal(t, first, second)
	assert.InDelta(t, 4.0, ledger.TypeTotal("Pesquisa", "Publicação de Artigos"), 1e-9)
}

func TestEvaluateExternalRatioBlocksInternalHeavyPortfolio(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 40, false)

	e := Evaluator{ExternalRatio: &ExternalRatioRule{MinRatio: 0.2}}
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 5}, ledger, testCatalog())

	require.Equal(t, DecisionRejected, d.Kind)
	assert.Equal(t, ReasonExternalRatioViolated, d.Reason)
}

func TestEvaluateExternalRatioSatisfiedByExternalSubmission(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 20, false)

	e := Evaluator{ExternalRatio: &ExternalRatioRule{MinRatio: 0.2}}
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 5, External: true}, ledger, testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
	assert.InDelta(t, 5.0, d.CreditedHours, 1e-9)
}

func TestEvaluateExternalRatioAtExactBoundary(t *testing.T) {
	// 10 external out of 50 total after the submission is exactly 20%.
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 35, false)
	ledger.Add("Pesquisa", "Defesas de TCC", 10, true)

	e := Evaluator{ExternalRatio: &ExternalRatioRule{MinRatio: 0.2}}
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 5}, ledger, testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
}

func TestEvaluateExternalRatioSkippedWhenCapAlreadyShrinks(t *testing.T) {
	// A partial cap is reported before the ratio rule runs: the student
	// first has to resubmit with fewer hours.
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 40, false)

	e := Evaluator{ExternalRatio: &ExternalRatioRule{MinRatio: 0.2}}
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 15}, ledger, testCatalog())

	require.Equal(t, DecisionPartiallyCapped, d.Kind)
	assert.InDelta(t, 10.0, d.MaxAdditionalRawHours, 1e-9)
}

func TestEvaluateExternalRatioDisabledByDefault(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("Ensino", "Monitoria", 40, false)

	var e Evaluator
	d := e.Evaluate(Submission{CategoryName: "Pesquisa", TypeName: "Publicação de Artigos", Hours: 5}, ledger, testCatalog())

	require.Equal(t, DecisionAccepted, d.Kind)
}
