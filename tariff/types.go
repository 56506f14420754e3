package tariff

// Category identifies a punitive tariff regime. The set is closed; values
// outside it are carried through the evaluator with a pass-through verdict
// rather than rejected.
type Category string

const (
	Section301           Category = "section_301"
	IEEPAFentanyl        Category = "ieepa_fentanyl"
	Section232Automotive Category = "section_232_automotive"
	Section232Buses      Category = "section_232_buses"
	Section232Steel      Category = "section_232_steel"
	Section232Aluminum   Category = "section_232_aluminum"
	Section232Copper     Category = "section_232_copper"
	Section232Lumber     Category = "section_232_lumber"
	IEEPAReciprocal      Category = "ieepa_reciprocal"
)

// Evaluation order. This is distinct from the reporting order on entry forms:
// Section 232 must be evaluated before IEEPA Reciprocal because an applicable
// Section 232 tariff exempts the corresponding value share from the
// reciprocal tariff (9903.01.33), and HTS-code-based Section 232
// (automotive/buses) must resolve before the material-composition tariffs
// because the two classification paths are mutually exclusive.
var stackingOrder = map[Category]int{
	Section301:           1,
	IEEPAFentanyl:        2,
	Section232Automotive: 3,
	Section232Buses:      4,
	Section232Steel:      5,
	Section232Aluminum:   6,
	Section232Copper:     7,
	Section232Lumber:     8,
	IEEPAReciprocal:      9,
}

// unknownRank sorts categories outside the closed set after everything else.
const unknownRank = 999

// StackingRank returns the category's position in the evaluation order.
func (c Category) StackingRank() int {
	if rank, ok := stackingOrder[c]; ok {
		return rank
	}
	return unknownRank
}

// IsMaterial reports whether the category is a material-composition
// Section 232 tariff (apportioned by declared percentage).
func (c Category) IsMaterial() bool {
	switch c {
	case Section232Steel, Section232Aluminum, Section232Copper, Section232Lumber:
		return true
	}
	return false
}

// DetectedTariff is one tariff regime the upstream duty-quoting client found
// applicable to a shipment. Amount is the nominal duty (shipment value times
// rate) before any exemption analysis.
type DetectedTariff struct {
	Category    Category `json:"category"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Rate        float64  `json:"rate"`
	Amount      float64  `json:"amount"`
	Description string   `json:"description,omitempty"`
}

// ProductInfo describes the shipment under evaluation.
type ProductInfo struct {
	OriginCountry string  `json:"origin_country"`
	HSCode        string  `json:"hs_code"`
	Value         float64 `json:"value"`
}

// Answers holds normalized clarifying answers keyed by question ID.
// Values are typed per question kind: bool, float64, or string.
type Answers map[string]any

// Bool returns the boolean answer for id, false when absent or mistyped.
func (a Answers) Bool(id string) bool {
	v, _ := a[id].(bool)
	return v
}

// Percent returns the numeric answer for id, 0 when absent or mistyped.
func (a Answers) Percent(id string) float64 {
	v, _ := a.PercentOK(id)
	return v
}

// PercentOK returns the numeric answer for id and whether it was supplied.
func (a Answers) PercentOK(id string) (float64, bool) {
	switch v := a[id].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Country returns the country-code answer for id, "" when absent.
func (a Answers) Country(id string) string {
	v, _ := a[id].(string)
	return v
}

// Verdict is the outcome of evaluating one tariff category.
type Verdict string

const (
	// VerdictApplies means the tariff applies, possibly apportioned.
	VerdictApplies Verdict = "applies"
	// VerdictExcluded means the tariff does not apply (exempt or not
	// applicable); final amount is always zero.
	VerdictExcluded Verdict = "excluded"
	// VerdictNeedsInput means a required answer is missing and the caller
	// should re-prompt. Not a failure: the evaluation still returns.
	VerdictNeedsInput Verdict = "needs_input"
	// VerdictInvalid flags inconsistent input (e.g. material percentages
	// summing past 100). Final amount is zero.
	VerdictInvalid Verdict = "invalid"
)

// Analysis carries the per-category verdict with its exemption code,
// human-readable reasoning, and the duty amount after analysis.
type Analysis struct {
	Verdict       Verdict `json:"verdict"`
	ExemptionCode string  `json:"exemption_code,omitempty"`
	Reasoning     string  `json:"reasoning"`
	FinalAmount   float64 `json:"final_amount"`
}

// Excluded reports whether the tariff was resolved as not applying.
func (a Analysis) Excluded() bool {
	return a.Verdict == VerdictExcluded
}

// StackingResult merges a detected tariff with its analysis.
type StackingResult struct {
	DetectedTariff
	Analysis
}

// AggregateResult is the full outcome of one evaluation call, with results
// in stacking order and duty totals before and after exemptions.
type AggregateResult struct {
	Results     []StackingResult `json:"stacking_order"`
	TotalBefore float64          `json:"total_before"`
	TotalAfter  float64          `json:"total_after"`
	Savings     float64          `json:"savings"`
}
