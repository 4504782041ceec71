package rules

import "math"

// DecisionKind classifies the evaluator outcome.
type DecisionKind string

const (
	DecisionAccepted        DecisionKind = "ACCEPTED"
	DecisionPartiallyCapped DecisionKind = "PARTIALLY_CAPPED"
	DecisionRejected        DecisionKind = "REJECTED"
)

// RejectReason names why a submission was refused outright.
type RejectReason string

const (
	ReasonInvalidCategoryOrType RejectReason = "INVALID_CATEGORY_OR_TYPE"
	ReasonInvalidHours          RejectReason = "INVALID_HOURS"
	ReasonCategoryLimitReached  RejectReason = "CATEGORY_LIMIT_REACHED"
	ReasonTypeLimitReached      RejectReason = "TYPE_LIMIT_REACHED"
	// ReasonNoCreditableRoom covers the case where both caps have nonzero
	// room but flooring to whole raw hours leaves nothing submittable.
	ReasonNoCreditableRoom      RejectReason = "TYPE_OR_CATEGORY_LIMIT_REACHED"
	ReasonExternalRatioViolated RejectReason = "EXTERNAL_RATIO_VIOLATION"
)

// Submission is a candidate activity before persistence.
type Submission struct {
	CategoryName string
	TypeName     string
	Hours        float64
	External     bool
}

// Decision is the evaluator verdict for one candidate submission.
type Decision struct {
	Kind DecisionKind
	// CreditedHours is set when the submission is accepted in full.
	CreditedHours float64
	// MaxAdditionalRawHours reports, when partially capped, the largest
	// whole raw-hour amount the student could still submit for this
	// category/type combination.
	MaxAdditionalRawHours float64
	Reason                RejectReason
}

// ExternalRatioRule requires that at least MinRatio of all credited hours
// come from external activities. Portfolio-wide, so it runs last, after the
// per-bucket caps have produced a tentative acceptance.
type ExternalRatioRule struct {
	MinRatio float64
}

// Evaluator applies the institutional hour-allocation rules. The zero value
// evaluates the cap rules only; attach ExternalRatio to enforce the
// external-hours minimum.
type Evaluator struct {
	ExternalRatio *ExternalRatioRule
}

const epsilon = 1e-9

// Evaluate decides whether the candidate is admissible against the ledger
// and catalog. Checks run in a fixed order and the first failing one
// determines the result: category and type caps are hard stops, the
// external-ratio rule is a portfolio constraint evaluated only once the
// hour computation has succeeded.
func (e *Evaluator) Evaluate(candidate Submission, ledger *Ledger, catalog *Catalog) Decision {
	category, ok := catalog.Category(candidate.CategoryName)
	if !ok {
		return rejected(ReasonInvalidCategoryOrType)
	}
	activityType, ok := catalog.Type(candidate.CategoryName, candidate.TypeName)
	if !ok {
		return rejected(ReasonInvalidCategoryOrType)
	}

	if candidate.Hours <= 0 || math.IsNaN(candidate.Hours) || math.IsInf(candidate.Hours, 0) {
		return rejected(ReasonInvalidHours)
	}

	roomInCategory := category.HourLimit - ledger.CategoryTotal(category.Name)
	if roomInCategory <= epsilon {
		return rejected(ReasonCategoryLimitReached)
	}

	roomInType := activityType.MaxHours - ledger.TypeTotal(category.Name, activityType.Name)
	if roomInType <= epsilon {
		return rejected(ReasonTypeLimitReached)
	}

	requestedCredit := candidate.Hours * activityType.CreditFactor
	allowedCredit := math.Min(requestedCredit, math.Min(roomInCategory, roomInType))
	// Whole raw hours only; the submission form cannot represent fractions.
	allowedRaw := math.Floor(allowedCredit/activityType.CreditFactor + epsilon)

	if allowedRaw+epsilon >= candidate.Hours {
		if d, ok := e.checkExternalRatio(candidate, ledger, requestedCredit); !ok {
			return d
		}
		return Decision{Kind: DecisionAccepted, CreditedHours: requestedCredit}
	}
	if allowedRaw > 0 {
		return Decision{Kind: DecisionPartiallyCapped, MaxAdditionalRawHours: allowedRaw}
	}
	return rejected(ReasonNoCreditableRoom)
}

func (e *Evaluator) checkExternalRatio(candidate Submission, ledger *Ledger, credited float64) (Decision, bool) {
	if e.ExternalRatio == nil || e.ExternalRatio.MinRatio <= 0 {
		return Decision{}, true
	}
	external := ledger.ExternalTotal()
	if candidate.External {
		external += credited
	}
	grand := ledger.GrandTotal() + credited
	if external+epsilon < e.ExternalRatio.MinRatio*grand {
		return rejected(ReasonExternalRatioViolated), false
	}
	return Decision{}, true
}

func rejected(reason RejectReason) Decision {
	return Decision{Kind: DecisionRejected, Reason: reason}
}
