package questions

import (
	"testing"

	"github.com/tariffdesk/stacking/tariff"
)

func ids(qs []Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func byID(t *testing.T, qs []Question, id string) Question {
	t.Helper()
	for _, q := range qs {
		if q.ID == id {
			return q
		}
	}
	t.Fatalf("Question %q not found in plan %v", id, ids(qs))
	return Question{}
}

func TestPlanEmitsInStackingPriorityOrder(t *testing.T) {
	// Detected order is deliberately scrambled; the plan must not follow it.
	detected := []tariff.DetectedTariff{
		{Category: tariff.IEEPAReciprocal},
		{Category: tariff.Section232Steel},
		{Category: tariff.Section301},
	}

	qs := Plan(detected, "CN")

	want := []string{
		tariff.AnsUSTRProductExclusion,
		tariff.AnsUSTRManufacturingEquipment,
		tariff.AnsSteelPercentage,
		tariff.AnsSteelOriginCountry,
		tariff.AnsSteelMeltedPouredUS,
		tariff.AnsHumanitarianDonation,
		tariff.AnsUSContentPercentage,
		tariff.AnsInformationalMaterials,
	}
	got := ids(qs)
	if len(got) != len(want) {
		t.Fatalf("Expected %d questions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for i, q := range qs {
		if q.Index != i {
			t.Errorf("Question %s: expected index %d, got %d", q.ID, i, q.Index)
		}
	}
}

func TestPlanSection301SkippedForNonChina(t *testing.T) {
	detected := []tariff.DetectedTariff{{Category: tariff.Section301}}
	if qs := Plan(detected, "DE"); len(qs) != 0 {
		t.Errorf("Expected no questions for non-China Section 301, got %v", ids(qs))
	}
}

func TestPlanUSMCAOriginCollapsesMaterialQuestions(t *testing.T) {
	detected := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel},
		{Category: tariff.Section232Aluminum},
	}

	qs := Plan(detected, "CA")

	if len(qs) != 1 {
		t.Fatalf("Expected a single shared USMCA question, got %v", ids(qs))
	}
	if qs[0].ID != tariff.AnsUSMCAQualified {
		t.Errorf("Expected %s, got %s", tariff.AnsUSMCAQualified, qs[0].ID)
	}
}

func TestPlanDeduplicatesUSMCAQuestion(t *testing.T) {
	detected := []tariff.DetectedTariff{
		{Category: tariff.Section232Automotive},
		{Category: tariff.Section232Steel},
	}

	qs := Plan(detected, "MX")

	count := 0
	for _, q := range qs {
		if q.ID == tariff.AnsUSMCAQualified {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one USMCA question, got %d", count)
	}
}

func TestPlanConditionalMeltPourQuestion(t *testing.T) {
	detected := []tariff.DetectedTariff{{Category: tariff.Section232Steel}}

	qs := Plan(detected, "DE")

	q := byID(t, qs, tariff.AnsSteelMeltedPouredUS)
	if q.Conditional == nil {
		t.Fatal("Expected a conditional on the melt/pour question")
	}
	if q.Conditional.DependsOn != tariff.AnsSteelOriginCountry {
		t.Errorf("Expected dependency on %s, got %s", tariff.AnsSteelOriginCountry, q.Conditional.DependsOn)
	}
	if q.Conditional.Value != "US" {
		t.Errorf("Expected conditional value US, got %s", q.Conditional.Value)
	}
}

func TestPlanReciprocal(t *testing.T) {
	detected := []tariff.DetectedTariff{{Category: tariff.IEEPAReciprocal}}

	t.Run("column 2 origin needs nothing", func(t *testing.T) {
		if qs := Plan(detected, "CU"); len(qs) != 0 {
			t.Errorf("Expected no questions for a Column 2 origin, got %v", ids(qs))
		}
	})

	t.Run("EU origin adds MFN rate question", func(t *testing.T) {
		qs := Plan(detected, "DE")
		q := byID(t, qs, tariff.AnsColumn1DutyRate)
		if q.Kind != KindSlider {
			t.Errorf("Expected a slider, got %s", q.Kind)
		}
		if q.Max != 50 {
			t.Errorf("Expected max 50, got %d", q.Max)
		}
	})

	t.Run("general origin omits MFN rate question", func(t *testing.T) {
		qs := Plan(detected, "BR")
		for _, q := range qs {
			if q.ID == tariff.AnsColumn1DutyRate {
				t.Error("Did not expect an MFN rate question for a general origin")
			}
		}
		if len(qs) != 3 {
			t.Errorf("Expected 3 questions, got %v", ids(qs))
		}
	})
}

func TestPlanIsDeterministic(t *testing.T) {
	detected := []tariff.DetectedTariff{
		{Category: tariff.Section232Steel},
		{Category: tariff.Section232Copper},
		{Category: tariff.IEEPAReciprocal},
	}

	first := Plan(detected, "DE")
	second := Plan(detected, "DE")

	if len(first) != len(second) {
		t.Fatalf("Plans differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Index != second[i].Index {
			t.Errorf("Position %d differs: %s/%d vs %s/%d",
				i, first[i].ID, first[i].Index, second[i].ID, second[i].Index)
		}
	}
}
