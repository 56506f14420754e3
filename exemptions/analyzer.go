package exemptions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tariffdesk/stacking/tariff"
)

// legacyOrder is the simplified stacking sequence this analyzer reports.
// The full evaluator in package tariff uses the newer evaluation order;
// this path exists for quick first-matching-exemption screening.
var legacyOrder = []tariff.Category{
	tariff.Section232Steel,
	tariff.Section232Aluminum,
	tariff.Section232Automotive,
	tariff.Section301,
	tariff.IEEPAReciprocal,
	tariff.IEEPAFentanyl,
}

func legacyRank(cat tariff.Category) int {
	for i, c := range legacyOrder {
		if c == cat {
			return i
		}
	}
	return len(legacyOrder) + 1
}

// GuidedResult is the outcome of the single-pass exemption screening.
type GuidedResult struct {
	StackingOrder []tariff.StackingResult `json:"stacking_order"`
	TotalBefore   float64                 `json:"total_before"`
	TotalAfter    float64                 `json:"total_after"`
	Savings       float64                 `json:"savings"`
	Guidance      string                  `json:"cbp_guidance"`
}

// Analyze runs the simplified single-pass screening: each detected tariff
// is either exempted by the first matching catalog rule or applies at its
// nominal amount. No apportionment, no partial exemptions. The codes it
// assigns agree with the full evaluator for the exemptions both paths
// model (USMCA, US-origin material, US content threshold).
func (c *Catalog) Analyze(product tariff.ProductInfo, detected []tariff.DetectedTariff, answers tariff.Answers) (*GuidedResult, error) {
	var totalBefore float64
	section232Present := false
	for _, t := range detected {
		totalBefore += t.Amount
		if strings.HasPrefix(string(t.Category), "section_232") {
			section232Present = true
		}
	}

	sorted := make([]tariff.DetectedTariff, len(detected))
	copy(sorted, detected)
	sort.SliceStable(sorted, func(i, j int) bool {
		return legacyRank(sorted[i].Category) < legacyRank(sorted[j].Category)
	})

	results := make([]tariff.StackingResult, 0, len(sorted))
	exempted := 0
	for _, t := range sorted {
		analysis, err := c.screen(t, product, answers, section232Present)
		if err != nil {
			return nil, err
		}
		if analysis.Excluded() {
			exempted++
		}
		results = append(results, tariff.StackingResult{DetectedTariff: t, Analysis: analysis})
	}

	var totalAfter float64
	for _, r := range results {
		if !r.Excluded() {
			totalAfter += r.FinalAmount
		}
	}

	orderNames := make([]string, 0, len(sorted))
	for _, t := range sorted {
		orderNames = append(orderNames, string(t.Category))
	}
	guidance := fmt.Sprintf("Stacking Order: %s. Applied %d exemptions. ",
		strings.Join(orderNames, " -> "), exempted)
	if section232Present {
		guidance += "Section 232 exempts IEEPA Reciprocal per 9903.01.33. "
	}

	return &GuidedResult{
		StackingOrder: results,
		TotalBefore:   totalBefore,
		TotalAfter:    totalAfter,
		Savings:       totalBefore - totalAfter,
		Guidance:      guidance,
	}, nil
}

// screen resolves one tariff against the catalog: structural 232/reciprocal
// exclusivity first, then the first matching EXEMPT rule wins.
func (c *Catalog) screen(t tariff.DetectedTariff, product tariff.ProductInfo, answers tariff.Answers, section232Present bool) (tariff.Analysis, error) {
	if t.Category == tariff.IEEPAReciprocal && section232Present {
		return tariff.Analysis{
			Verdict:       tariff.VerdictExcluded,
			ExemptionCode: "9903.01.33",
			Reasoning:     "EXEMPT: Section 232 tariffs apply, which automatically exempts IEEPA Reciprocal (9903.01.33)",
			FinalAmount:   0,
		}, nil
	}

	rules, err := c.ForCategory(t.Category)
	if err != nil {
		return tariff.Analysis{}, err
	}

	for _, rule := range rules {
		if rule.Effect != EffectExempt {
			continue
		}
		// The 232/reciprocal exclusivity rule is applied structurally
		// above; it carries no answer-driven conditions.
		if rule.Code == "9903.01.33" {
			continue
		}
		if c.RuleApplies(rule, product, answers) {
			return tariff.Analysis{
				Verdict:       tariff.VerdictExcluded,
				ExemptionCode: rule.Code,
				Reasoning:     fmt.Sprintf("EXEMPT: %s - %s", rule.Name, truncate(rule.Description, 100)),
				FinalAmount:   0,
			}, nil
		}
	}

	return tariff.Analysis{
		Verdict:     tariff.VerdictApplies,
		Reasoning:   fmt.Sprintf("Applies: %s", t.Name),
		FinalAmount: t.Amount,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
