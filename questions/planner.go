// Package questions generates the clarifying questions an exemption
// analysis needs and normalizes the raw answers that come back. Generation
// is deterministic: the same detected categories and origin always produce
// the same questions in the same order, with contiguous indexes.
package questions

import (
	"fmt"

	"github.com/tariffdesk/stacking/tariff"
)

// Kind identifies how a question is asked and how its answer is parsed.
type Kind string

const (
	KindBoolean       Kind = "boolean"
	KindSlider        Kind = "slider"
	KindCountrySelect Kind = "country_select"
)

// Condition gates a question on another question's answer.
type Condition struct {
	DependsOn string `json:"depends_on"`
	Value     string `json:"value"`
}

// Question is one clarifying prompt. Index is assigned monotonically at
// generation time and is the stable key raw answers are submitted under.
type Question struct {
	ID          string     `json:"id"`
	Index       int        `json:"index"`
	Text        string     `json:"text"`
	Kind        Kind       `json:"type"`
	Options     []string   `json:"options,omitempty"`
	Min         int        `json:"min,omitempty"`
	Max         int        `json:"max,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Required    bool       `json:"required"`
	Conditional *Condition `json:"conditional,omitempty"`
	Help        string     `json:"help,omitempty"`
}

var yesNo = []string{"Yes", "No"}

// planner accumulates questions, deduplicating by ID and assigning indexes.
type planner struct {
	questions []Question
	seen      map[string]bool
}

func (p *planner) add(q Question) {
	if p.seen[q.ID] {
		return
	}
	q.Index = len(p.questions)
	p.seen[q.ID] = true
	p.questions = append(p.questions, q)
}

// Plan generates the ordered question set for the detected tariffs and
// origin country. Questions are emitted per category in stacking priority
// order so that indexes are reproducible for a given input.
func Plan(detected []tariff.DetectedTariff, origin string) []Question {
	categories := make(map[tariff.Category]bool, len(detected))
	for _, t := range detected {
		categories[t.Category] = true
	}

	p := &planner{questions: []Question{}, seen: map[string]bool{}}

	// Stacking priority order; fentanyl and buses never need input.
	if categories[tariff.Section301] && tariff.IsChinaOrigin(origin) {
		p.planSection301()
	}
	if categories[tariff.Section232Automotive] && tariff.IsUSMCAOrigin(origin) {
		p.addUSMCAQualified()
	}
	if categories[tariff.Section232Steel] {
		p.planSteel(origin)
	}
	if categories[tariff.Section232Aluminum] {
		p.planAluminum(origin)
	}
	if categories[tariff.Section232Copper] {
		p.add(Question{
			ID:       tariff.AnsCopperPercentage,
			Text:     "What percentage of the product (by value) is copper?",
			Kind:     KindSlider,
			Max:      100,
			Unit:     "%",
			Required: true,
			Help:     "Section 232 Copper tariff applies only to the copper portion of the product",
		})
	}
	if categories[tariff.Section232Lumber] {
		p.add(Question{
			ID:       tariff.AnsLumberPercentage,
			Text:     "What percentage of the product (by value) is lumber?",
			Kind:     KindSlider,
			Max:      100,
			Unit:     "%",
			Required: true,
			Help:     "Section 232 Lumber tariff applies only to the lumber portion of the product",
		})
	}
	if categories[tariff.IEEPAReciprocal] {
		p.planReciprocal(origin)
	}

	return p.questions
}

func (p *planner) addUSMCAQualified() {
	p.add(Question{
		ID:       tariff.AnsUSMCAQualified,
		Text:     "Does this product qualify for USMCA (United States-Mexico-Canada Agreement)?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Help:     "USMCA-qualified products from Canada/Mexico are exempt from Section 232 tariffs",
	})
}

func (p *planner) planSteel(origin string) {
	if tariff.IsUSMCAOrigin(origin) {
		p.addUSMCAQualified()
		return
	}
	p.add(Question{
		ID:       tariff.AnsSteelPercentage,
		Text:     "What percentage of the product (by value) is steel?",
		Kind:     KindSlider,
		Max:      100,
		Unit:     "%",
		Required: true,
		Help:     "Section 232 Steel tariff applies only to the steel portion of the product",
	})
	p.add(Question{
		ID:       tariff.AnsSteelOriginCountry,
		Text:     "What is the country of origin for the steel content?",
		Kind:     KindCountrySelect,
		Required: true,
		Help:     "If steel was melted and poured in the United States, it may be exempt",
	})
	p.add(Question{
		ID:       tariff.AnsSteelMeltedPouredUS,
		Text:     "Was the steel melted AND poured in the United States?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Conditional: &Condition{
			DependsOn: tariff.AnsSteelOriginCountry,
			Value:     "US",
		},
		Help: "Exemption code 9903.81.92 applies if steel was both melted and poured in the US",
	})
}

func (p *planner) planAluminum(origin string) {
	if tariff.IsUSMCAOrigin(origin) {
		p.addUSMCAQualified()
		return
	}
	p.add(Question{
		ID:       tariff.AnsAluminumPercentage,
		Text:     "What percentage of the product (by value) is aluminum?",
		Kind:     KindSlider,
		Max:      100,
		Unit:     "%",
		Required: true,
		Help:     "Section 232 Aluminum tariff applies only to the aluminum portion of the product",
	})
	p.add(Question{
		ID:       tariff.AnsAluminumOriginCountry,
		Text:     "What is the country of origin for the aluminum content?",
		Kind:     KindCountrySelect,
		Required: true,
		Help:     "If aluminum was smelted and cast in the United States, it may be exempt",
	})
	p.add(Question{
		ID:       tariff.AnsAluminumSmeltedCastUS,
		Text:     "Was the aluminum smelted AND cast in the United States?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Conditional: &Condition{
			DependsOn: tariff.AnsAluminumOriginCountry,
			Value:     "US",
		},
		Help: "Aluminum smelted and cast in the US is exempt from Section 232 tariffs",
	})
}

func (p *planner) planSection301() {
	p.add(Question{
		ID:       tariff.AnsUSTRProductExclusion,
		Text:     "Does this product match one of the 164 USTR product-specific exclusions?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Help:     "Check USTR Federal Register notices for detailed exclusion descriptions. Exemption code: 9903.88.69",
	})
	p.add(Question{
		ID:       tariff.AnsUSTRManufacturingEquipment,
		Text:     "Is this product classified as manufacturing equipment under the 14 USTR exclusions?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Help:     "Manufacturing equipment may qualify for exemption. Exemption code: 9903.88.70",
	})
}

func (p *planner) planReciprocal(origin string) {
	// Column 2 countries are automatically exempt: nothing to ask.
	if tariff.IsColumn2Origin(origin) {
		return
	}

	if tariff.IsSpecialReciprocalOrigin(origin) {
		p.add(Question{
			ID:       tariff.AnsColumn1DutyRate,
			Text:     "What is the Column 1 (MFN) duty rate for this HTS code?",
			Kind:     KindSlider,
			Max:      50,
			Unit:     "%",
			Required: true,
			Help: fmt.Sprintf("For %s products: If Column 1 rate >= 15%%, no reciprocal tariff applies. "+
				"If < 15%%, reciprocal rate = 15%% - Column 1 rate. "+
				"This ensures total duty = max(Column 1 rate, 15%%).", origin),
		})
	}

	p.add(Question{
		ID:       tariff.AnsHumanitarianDonation,
		Text:     "Is this a humanitarian donation (food, clothing, medicine)?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Help:     "Humanitarian donations are exempt from IEEPA Reciprocal tariff (exemption code: 9903.01.30)",
	})
	p.add(Question{
		ID:       tariff.AnsUSContentPercentage,
		Text:     "What percentage of the product value is U.S. content?",
		Kind:     KindSlider,
		Max:      100,
		Unit:     "%",
		Required: true,
		Help:     "Products with >20% U.S. content are exempt from IEEPA Reciprocal tariff (exemption code: 9903.01.34)",
	})
	p.add(Question{
		ID:       tariff.AnsInformationalMaterials,
		Text:     "Is this product informational materials (books, films, CDs, artwork)?",
		Kind:     KindBoolean,
		Options:  yesNo,
		Required: true,
		Help:     "Informational materials are exempt from IEEPA Reciprocal tariff (exemption code: 9903.01.21)",
	})
}
