package exemptions

import (
	"strings"
	"testing"

	"github.com/tariffdesk/stacking/tariff"
)

func TestAnalyzeLegacyOrder(t *testing.T) {
	catalog := newTestCatalog(t)

	detected := []tariff.DetectedTariff{
		{Category: tariff.IEEPAFentanyl, Name: "IEEPA Fentanyl", Rate: 0.20, Amount: 200},
		{Category: tariff.Section301, Name: "Section 301", Rate: 0.25, Amount: 250},
		{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
	}
	product := tariff.ProductInfo{OriginCountry: "CN", Value: 1000}

	result, err := catalog.Analyze(product, detected, tariff.Answers{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := []tariff.Category{tariff.Section232Steel, tariff.Section301, tariff.IEEPAFentanyl}
	for i, cat := range want {
		if result.StackingOrder[i].Category != cat {
			t.Errorf("Position %d: expected %s, got %s", i, cat, result.StackingOrder[i].Category)
		}
	}
	if !strings.Contains(result.Guidance, "Stacking Order:") {
		t.Errorf("Expected stacking order guidance, got %q", result.Guidance)
	}
}

func TestAnalyzeUSMCAExemption(t *testing.T) {
	catalog := newTestCatalog(t)

	detected := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
	}
	product := tariff.ProductInfo{OriginCountry: "CA", Value: 1000}
	answers := tariff.Answers{tariff.AnsUSMCAQualified: true}

	result, err := catalog.Analyze(product, detected, answers)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	r := result.StackingOrder[0]
	if r.Verdict != tariff.VerdictExcluded {
		t.Fatalf("Expected excluded, got %s", r.Verdict)
	}
	if r.ExemptionCode != "9903.01.26" {
		t.Errorf("Expected code 9903.01.26, got %s", r.ExemptionCode)
	}
	if result.TotalAfter != 0 {
		t.Errorf("Expected total after 0, got %.2f", result.TotalAfter)
	}
	if result.Savings != 500 {
		t.Errorf("Expected savings 500, got %.2f", result.Savings)
	}
}

func TestAnalyzeSection232ExemptsReciprocal(t *testing.T) {
	catalog := newTestCatalog(t)

	detected := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
		{Category: tariff.IEEPAReciprocal, Name: "IEEPA Reciprocal", Rate: 0.10, Amount: 100},
	}
	product := tariff.ProductInfo{OriginCountry: "BR", Value: 1000}

	result, err := catalog.Analyze(product, detected, tariff.Answers{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var reciprocal tariff.StackingResult
	for _, r := range result.StackingOrder {
		if r.Category == tariff.IEEPAReciprocal {
			reciprocal = r
		}
	}
	if reciprocal.ExemptionCode != "9903.01.33" {
		t.Errorf("Expected code 9903.01.33, got %s", reciprocal.ExemptionCode)
	}
	if !strings.Contains(result.Guidance, "9903.01.33") {
		t.Errorf("Expected 9903.01.33 guidance, got %q", result.Guidance)
	}

	// Steel itself still applies at its nominal amount.
	if result.TotalAfter != 500 {
		t.Errorf("Expected total after 500, got %.2f", result.TotalAfter)
	}
}

func TestAnalyzeNoMatchingRuleApplies(t *testing.T) {
	catalog := newTestCatalog(t)

	detected := []tariff.DetectedTariff{
		{Category: tariff.IEEPAFentanyl, Name: "IEEPA Fentanyl", Rate: 0.20, Amount: 200},
	}
	product := tariff.ProductInfo{OriginCountry: "CN", Value: 1000}

	result, err := catalog.Analyze(product, detected, tariff.Answers{tariff.AnsUSMCAQualified: true})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	r := result.StackingOrder[0]
	if r.Verdict != tariff.VerdictApplies {
		t.Fatalf("Expected fentanyl to apply, got %s", r.Verdict)
	}
	if r.FinalAmount != 200 {
		t.Errorf("Expected final amount 200, got %.2f", r.FinalAmount)
	}
}

// Both screening paths must assign the same exemption code for the
// exemptions they both model.
func TestAnalyzeAgreesWithEvaluator(t *testing.T) {
	catalog := newTestCatalog(t)

	tests := []struct {
		name     string
		detected []tariff.DetectedTariff
		product  tariff.ProductInfo
		answers  tariff.Answers
		category tariff.Category
		wantCode string
	}{
		{
			name: "usmca steel",
			detected: []tariff.DetectedTariff{
				{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
			},
			product:  tariff.ProductInfo{OriginCountry: "CA", Value: 1000},
			answers:  tariff.Answers{tariff.AnsUSMCAQualified: true, tariff.AnsSteelPercentage: 50.0},
			category: tariff.Section232Steel,
			wantCode: "9903.01.26",
		},
		{
			name: "us origin steel",
			detected: []tariff.DetectedTariff{
				{Category: tariff.Section232Steel, Name: "Section 232 Steel", Rate: 0.50, Amount: 500},
			},
			product: tariff.ProductInfo{OriginCountry: "DE", Value: 1000},
			answers: tariff.Answers{
				tariff.AnsSteelPercentage:     40.0,
				tariff.AnsSteelOriginCountry:  "US",
				tariff.AnsSteelMeltedPouredUS: true,
			},
			category: tariff.Section232Steel,
			wantCode: "9903.81.92",
		},
		{
			name: "us content reciprocal",
			detected: []tariff.DetectedTariff{
				{Category: tariff.IEEPAReciprocal, Name: "IEEPA Reciprocal", Rate: 0.10, Amount: 100},
			},
			product:  tariff.ProductInfo{OriginCountry: "BR", Value: 1000},
			answers:  tariff.Answers{tariff.AnsUSContentPercentage: 25.0},
			category: tariff.IEEPAReciprocal,
			wantCode: "9903.01.34",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guided, err := catalog.Analyze(tt.product, tt.detected, tt.answers)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			full := tariff.Evaluate(tt.detected, tt.answers, tt.product)

			var guidedCode, fullCode string
			for _, r := range guided.StackingOrder {
				if r.Category == tt.category {
					guidedCode = r.ExemptionCode
				}
			}
			for _, r := range full.Results {
				if r.Category == tt.category {
					fullCode = r.ExemptionCode
				}
			}

			if guidedCode != tt.wantCode {
				t.Errorf("Screening assigned %q, want %q", guidedCode, tt.wantCode)
			}
			if fullCode != tt.wantCode {
				t.Errorf("Evaluator assigned %q, want %q", fullCode, tt.wantCode)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	long := strings.Repeat("x", 150)
	if got := truncate(long, 100); len(got) != 100 {
		t.Errorf("Expected 100 characters, got %d", len(got))
	}
}
