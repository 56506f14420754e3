package tariff

import (
	"fmt"
	"sort"
)

// Automotive rebate parameters. The US assembly rebate shaves
// 3.75% x 33% = 1.2375 percentage points off the base automotive rate.
const (
	autoRebateRate     = 0.0375
	usAssemblyShare    = 0.33
	usAutoContentShare = 0.40
)

// USMCA content shares for automotive by origin.
var usmcaAutoShares = map[string]float64{
	"CA": 0.9136,
	"MX": 0.7145,
}

// evalContext carries cross-category state between evaluation steps. It is
// threaded as a value through the per-category functions; mutation happens
// only by deriving a new context, never in place.
type evalContext struct {
	// htsBased232 is set once an HTS-code-based Section 232 tariff
	// (automotive or buses) resolves as applying; material-composition
	// Section 232 tariffs are then superseded.
	htsBased232 bool
	// materials records the verdicts of material-composition Section 232
	// categories that ran their own logic. IEEPA Reciprocal uses it to
	// compute the non-232 remainder.
	materials map[Category]Analysis
}

func (c evalContext) withHTSBased232() evalContext {
	c.htsBased232 = true
	return c
}

func (c evalContext) withMaterial(cat Category, a Analysis) evalContext {
	materials := make(map[Category]Analysis, len(c.materials)+1)
	for k, v := range c.materials {
		materials[k] = v
	}
	materials[cat] = a
	c.materials = materials
	return c
}

// Evaluate runs the stacking analysis for one shipment. It is pure and
// total: every structurally valid input produces a result, never an error.
// Inconsistent or missing answers surface as per-category verdict states.
func Evaluate(tariffs []DetectedTariff, answers Answers, product ProductInfo) AggregateResult {
	sorted := make([]DetectedTariff, len(tariffs))
	copy(sorted, tariffs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Category.StackingRank() < sorted[j].Category.StackingRank()
	})

	ctx := evalContext{}
	results := make([]StackingResult, 0, len(sorted))
	for _, t := range sorted {
		var analysis Analysis
		analysis, ctx = evaluateCategory(t, answers, product, ctx)
		results = append(results, StackingResult{DetectedTariff: t, Analysis: analysis})
	}

	return aggregate(results)
}

// evaluateCategory dispatches one tariff to its decision tree and returns
// the analysis together with the context for subsequent categories.
func evaluateCategory(t DetectedTariff, answers Answers, product ProductInfo, ctx evalContext) (Analysis, evalContext) {
	switch t.Category {
	case Section232Automotive:
		a := evaluateAutomotive(t, answers, product)
		if !a.Excluded() {
			ctx = ctx.withHTSBased232()
		}
		return a, ctx

	case Section232Buses:
		a := evaluateBuses(t)
		if !a.Excluded() {
			ctx = ctx.withHTSBased232()
		}
		return a, ctx

	case Section232Steel, Section232Aluminum, Section232Copper, Section232Lumber:
		if ctx.htsBased232 {
			return supersededByHTS(), ctx
		}
		a := evaluateMaterial(t, answers, product)
		return a, ctx.withMaterial(t.Category, a)

	case Section301:
		return evaluateSection301(t, answers, product), ctx

	case IEEPAFentanyl:
		return evaluateFentanyl(t, product), ctx

	case IEEPAReciprocal:
		return evaluateReciprocal(t, answers, product, ctx), ctx

	default:
		// Unknown category: lenient pass-through, applies in full.
		return Analysis{
			Verdict:     VerdictApplies,
			Reasoning:   fmt.Sprintf("APPLIES: %s (category: %s)", t.Name, t.Category),
			FinalAmount: t.Amount,
		}, ctx
	}
}

// supersededByHTS is the verdict for material-composition Section 232
// tariffs once automotive or buses has claimed the shipment.
func supersededByHTS() Analysis {
	return Analysis{
		Verdict:       VerdictExcluded,
		ExemptionCode: "N/A",
		Reasoning: "NOT APPLICABLE: Product already covered under Section 232 Automotive/Buses " +
			"HTS code classification. Material composition tariffs do not apply when an " +
			"HTS-based Section 232 tariff applies.",
		FinalAmount: 0,
	}
}

func evaluateAutomotive(t DetectedTariff, answers Answers, product ProductInfo) Analysis {
	origin := product.OriginCountry
	rebate := autoRebateRate * usAssemblyShare
	effectiveRate := t.Rate - rebate

	if IsUSMCAOrigin(origin) {
		if answers.Bool(AnsUSMCAQualified) {
			adjustedShare := usmcaAutoShares[origin] * usAutoContentShare
			finalRate := effectiveRate * (1 - adjustedShare)
			code := "9903.01.27"
			if origin == "CA" {
				code = "9903.01.26"
			}
			return Analysis{
				Verdict:       VerdictApplies,
				ExemptionCode: code,
				Reasoning: fmt.Sprintf(
					"PARTIALLY EXEMPT: USMCA-qualified automotive from %s. "+
						"Base rate %.2f%% - auto rebate %.2f%% = %.4f%%. "+
						"USMCA adjusted exemption %.2f%% (%.2f%% share x 40%% US content). "+
						"Final effective rate: %.4f%%",
					origin, t.Rate*100, rebate*100, effectiveRate*100,
					adjustedShare*100, usmcaAutoShares[origin]*100, finalRate*100),
				FinalAmount: product.Value * finalRate,
			}
		}
		return Analysis{
			Verdict: VerdictApplies,
			Reasoning: fmt.Sprintf(
				"APPLIES: Automotive from %s (not USMCA-qualified). "+
					"Rate: %.2f%% - auto rebate %.2f%% = %.4f%%",
				origin, t.Rate*100, rebate*100, effectiveRate*100),
			FinalAmount: product.Value * effectiveRate,
		}
	}

	return Analysis{
		Verdict: VerdictApplies,
		Reasoning: fmt.Sprintf(
			"APPLIES: Automotive tariff with US assembly rebate. Rate: %.2f%% - %.2f%% = %.4f%%",
			t.Rate*100, rebate*100, effectiveRate*100),
		FinalAmount: product.Value * effectiveRate,
	}
}

// Buses (heading 8702) have no USMCA or rebate reduction path.
func evaluateBuses(t DetectedTariff) Analysis {
	return Analysis{
		Verdict: VerdictApplies,
		Reasoning: fmt.Sprintf(
			"APPLIES: Section 232 Buses tariff at %.0f%% rate (Heading 8702, no USMCA exemptions available)",
			t.Rate*100),
		FinalAmount: t.Amount,
	}
}

// materialRules parameterizes the shared material-composition decision tree.
// Steel and aluminum carry USMCA and US-origin exemption paths; copper and
// lumber apply to their declared percentage unconditionally once non-zero.
type materialRules struct {
	label         string
	pctAnswer     string
	originAnswer  string
	confirmAnswer string
	usOriginCode  string
	usOriginVerbs string
	usmcaPath     bool
}

var materialsByCategory = map[Category]materialRules{
	Section232Steel: {
		label:         "steel",
		pctAnswer:     AnsSteelPercentage,
		originAnswer:  AnsSteelOriginCountry,
		confirmAnswer: AnsSteelMeltedPouredUS,
		usOriginCode:  "9903.81.92",
		usOriginVerbs: "melted and poured",
		usmcaPath:     true,
	},
	Section232Aluminum: {
		label:         "aluminum",
		pctAnswer:     AnsAluminumPercentage,
		originAnswer:  AnsAluminumOriginCountry,
		confirmAnswer: AnsAluminumSmeltedCastUS,
		usOriginCode:  "US_ORIGIN_ALUMINUM",
		usOriginVerbs: "smelted and cast",
		usmcaPath:     true,
	},
	Section232Copper: {
		label:     "copper",
		pctAnswer: AnsCopperPercentage,
	},
	Section232Lumber: {
		label:     "lumber",
		pctAnswer: AnsLumberPercentage,
	},
}

func evaluateMaterial(t DetectedTariff, answers Answers, product ProductInfo) Analysis {
	rules := materialsByCategory[t.Category]
	origin := product.OriginCountry

	pct := answers.Percent(rules.pctAnswer)
	if pct == 0 {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "N/A",
			Reasoning:     fmt.Sprintf("NOT APPLICABLE: Product has 0%% %s composition", rules.label),
			FinalAmount:   0,
		}
	}

	if rules.usmcaPath {
		if IsUSMCAOrigin(origin) && answers.Bool(AnsUSMCAQualified) {
			code := "9903.01.27"
			if origin == "CA" {
				code = "9903.01.26"
			}
			return Analysis{
				Verdict:       VerdictExcluded,
				ExemptionCode: code,
				Reasoning:     fmt.Sprintf("EXEMPT: USMCA-qualified product from %s", origin),
				FinalAmount:   0,
			}
		}

		materialOrigin := answers.Country(rules.originAnswer)
		if materialOrigin == "US" && answers.Bool(rules.confirmAnswer) {
			return Analysis{
				Verdict:       VerdictExcluded,
				ExemptionCode: rules.usOriginCode,
				Reasoning: fmt.Sprintf("EXEMPT: %s %s in the United States",
					capitalize(rules.label), rules.usOriginVerbs),
				FinalAmount: 0,
			}
		}
	}

	return Analysis{
		Verdict: VerdictApplies,
		Reasoning: fmt.Sprintf("APPLIES to %.1f%% %s portion at %.0f%% rate",
			pct, rules.label, t.Rate*100),
		FinalAmount: product.Value * (pct / 100.0) * t.Rate,
	}
}

func evaluateSection301(t DetectedTariff, answers Answers, product ProductInfo) Analysis {
	origin := product.OriginCountry
	if !IsChinaOrigin(origin) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "N/A",
			Reasoning:     fmt.Sprintf("NOT APPLICABLE: Product not from China/Hong Kong/Macau (origin: %s)", origin),
			FinalAmount:   0,
		}
	}

	if answers.Bool(AnsUSTRProductExclusion) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.88.69",
			Reasoning:     "EXEMPT: Product matches one of 164 USTR product-specific exclusions",
			FinalAmount:   0,
		}
	}

	if answers.Bool(AnsUSTRManufacturingEquipment) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.88.70",
			Reasoning:     "EXEMPT: Product classified as manufacturing equipment",
			FinalAmount:   0,
		}
	}

	return Analysis{
		Verdict:     VerdictApplies,
		Reasoning:   fmt.Sprintf("APPLIES: Product from %s, no USTR exclusions apply", origin),
		FinalAmount: t.Amount,
	}
}

// IEEPA Fentanyl has no exemption path: once the origin gate is met it
// applies to the full product value regardless of any answer.
func evaluateFentanyl(t DetectedTariff, product ProductInfo) Analysis {
	origin := product.OriginCountry
	if !IsChinaOrigin(origin) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "N/A",
			Reasoning:     fmt.Sprintf("NOT APPLICABLE: Product not from China/Hong Kong/Macau (origin: %s)", origin),
			FinalAmount:   0,
		}
	}
	return Analysis{
		Verdict:     VerdictApplies,
		Reasoning:   "APPLIES: IEEPA Fentanyl tariff on 100% of product value (no exemptions available)",
		FinalAmount: t.Amount,
	}
}

// section232Coverage sums declared material percentages for categories whose
// Section 232 verdict actually applied. Automotive/buses shipments never get
// material-based 232, so their materials do not count toward coverage.
type section232Coverage struct {
	steel, aluminum, copper, lumber float64
}

func (c section232Coverage) total() float64 {
	return c.steel + c.aluminum + c.copper + c.lumber
}

func coverageFromContext(answers Answers, ctx evalContext) section232Coverage {
	var cov section232Coverage
	if a, ok := ctx.materials[Section232Steel]; ok && !a.Excluded() {
		cov.steel = answers.Percent(AnsSteelPercentage)
	}
	if a, ok := ctx.materials[Section232Aluminum]; ok && !a.Excluded() {
		cov.aluminum = answers.Percent(AnsAluminumPercentage)
	}
	if a, ok := ctx.materials[Section232Copper]; ok && !a.Excluded() {
		cov.copper = answers.Percent(AnsCopperPercentage)
	}
	if a, ok := ctx.materials[Section232Lumber]; ok && !a.Excluded() {
		cov.lumber = answers.Percent(AnsLumberPercentage)
	}
	return cov
}

func invalidCoverage(cov section232Coverage) Analysis {
	return Analysis{
		Verdict: VerdictInvalid,
		Reasoning: fmt.Sprintf(
			"ERROR: Total Section 232 material percentages exceed 100%%. "+
				"Steel: %g%%, Aluminum: %g%%, Copper: %g%%, Lumber: %g%%. Total: %g%%. "+
				"Please verify composition percentages.",
			cov.steel, cov.aluminum, cov.copper, cov.lumber, cov.total()),
		FinalAmount: 0,
	}
}

func fullyCoveredBy232() Analysis {
	return Analysis{
		Verdict:       VerdictExcluded,
		ExemptionCode: "9903.01.33",
		Reasoning:     "EXEMPT: Product is 100% Section 232 materials (exemption 9903.01.33 - metal portion exempt)",
		FinalAmount:   0,
	}
}

func evaluateReciprocal(t DetectedTariff, answers Answers, product ProductInfo, ctx evalContext) Analysis {
	origin := product.OriginCountry

	if IsColumn2Origin(origin) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.01.29",
			Reasoning:     fmt.Sprintf("EXEMPT: Product from Column 2 rate country (%s)", origin),
			FinalAmount:   0,
		}
	}

	if answers.Bool(AnsHumanitarianDonation) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.01.30",
			Reasoning:     "EXEMPT: Humanitarian donation (food, clothing, medicine)",
			FinalAmount:   0,
		}
	}

	// EU, Japan, South Korea: reciprocal tops total duty up to 15%.
	if IsSpecialReciprocalOrigin(origin) {
		column1, ok := answers.PercentOK(AnsColumn1DutyRate)
		if !ok {
			return Analysis{
				Verdict: VerdictNeedsInput,
				Reasoning: fmt.Sprintf(
					"REQUIRES DATA: Product from %s requires Column 1 (MFN) duty rate "+
						"to calculate adjusted reciprocal tariff. "+
						"Rule: if MFN >= 15%% then reciprocal = 0%%; if MFN < 15%% then reciprocal = 15%% - MFN. "+
						"Please provide the Column 1 duty rate for this HTS code.", origin),
				FinalAmount: 0,
			}
		}

		if column1 >= 15 {
			return Analysis{
				Verdict:       VerdictExcluded,
				ExemptionCode: "N/A",
				Reasoning: fmt.Sprintf(
					"EXEMPT: %s product with Column 1 (MFN) rate of %.2f%% (>= 15%% threshold). "+
						"No reciprocal tariff applied. Total duty = %.2f%% (Column 1 only)",
					origin, column1, column1),
				FinalAmount: 0,
			}
		}

		adjustedRate := (15 - column1) / 100.0
		cov := coverageFromContext(answers, ctx)
		if cov.total() > 100 {
			return invalidCoverage(cov)
		}
		remainder := 100 - cov.total()
		if remainder <= 0 {
			return fullyCoveredBy232()
		}
		return Analysis{
			Verdict: VerdictApplies,
			Reasoning: fmt.Sprintf(
				"APPLIES (ADJUSTED): %s product with Column 1 (MFN) rate %.2f%%. "+
					"Adjusted reciprocal rate = 15%% - %.2f%% = %.2f%%. "+
					"Applied to %.1f%% non-232 portion. "+
					"Total duty = %.2f%% (Column 1) + %.2f%% (Reciprocal) = 15%%",
				origin, column1, column1, adjustedRate*100, remainder, column1, adjustedRate*100),
			FinalAmount: product.Value * (remainder / 100.0) * adjustedRate,
		}
	}

	cov := coverageFromContext(answers, ctx)
	if cov.total() > 100 {
		return invalidCoverage(cov)
	}
	remainder := 100 - cov.total()
	if remainder <= 0 {
		return fullyCoveredBy232()
	}

	usContent := answers.Percent(AnsUSContentPercentage)
	if usContent > 100 {
		return Analysis{
			Verdict: VerdictInvalid,
			Reasoning: fmt.Sprintf(
				"ERROR: US content percentage (%g%%) cannot exceed 100%%. Please verify the US content value.",
				usContent),
			FinalAmount: 0,
		}
	}
	if usContent > 20 {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.01.34",
			Reasoning:     fmt.Sprintf("EXEMPT: Product has %.1f%% U.S. content (>20%% threshold)", usContent),
			FinalAmount:   0,
		}
	}

	if answers.Bool(AnsInformationalMaterials) {
		return Analysis{
			Verdict:       VerdictExcluded,
			ExemptionCode: "9903.01.21",
			Reasoning:     "EXEMPT: Product is informational materials (books, films, CDs, artwork)",
			FinalAmount:   0,
		}
	}

	return Analysis{
		Verdict: VerdictApplies,
		Reasoning: fmt.Sprintf(
			"APPLIES to NON-232 portion only: %.1f%% of product value "+
				"(Section 232 materials %.1f%% are mutually exclusive per exemption 9903.01.33)",
			remainder, cov.total()),
		FinalAmount: product.Value * (remainder / 100.0) * t.Rate,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
