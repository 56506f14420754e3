// Package exemptions holds the exemption-rule catalog: the regulatory
// exclusions that can lift or reduce a punitive tariff. The catalog is
// read-only configuration; rules can be served from the built-in set, a
// YAML file, or PostgreSQL, all behind the same RuleStore interface.
package exemptions

import (
	"github.com/tariffdesk/stacking/tariff"
)

// Effect is what a matching rule does to the tariff under analysis.
type Effect string

const (
	EffectExempt      Effect = "EXEMPT"
	EffectNoExemption Effect = "NO_EXEMPTION"
)

// Conditions are the structured predicates a rule checks, evaluated in
// order: origin whitelist, USMCA qualification, US melt/cast origin,
// minimum percentage threshold. Expression is an optional CEL condition
// evaluated against the same facts for rules the structured fields cannot
// express.
type Conditions struct {
	OriginCountries    []string `json:"origin_countries,omitempty" yaml:"origin_countries,omitempty"`
	RequiresUSMCA      bool     `json:"requires_usmca,omitempty" yaml:"requires_usmca,omitempty"`
	RequiresUSMeltCast bool     `json:"requires_us_melt_cast,omitempty" yaml:"requires_us_melt_cast,omitempty"`
	MinPercentage      *float64 `json:"min_percentage,omitempty" yaml:"min_percentage,omitempty"`
	Expression         string   `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Rule is one catalog entry: a regulatory exclusion with the conditions
// under which it applies and the tariff categories it attaches to.
type Rule struct {
	Code             string            `json:"code" yaml:"code"`
	Name             string            `json:"name" yaml:"name"`
	Description      string            `json:"description" yaml:"description"`
	Categories       []tariff.Category `json:"categories" yaml:"categories"`
	AppliesToHSCodes []string          `json:"applies_to_hs_codes,omitempty" yaml:"applies_to_hs_codes,omitempty"`
	Effect           Effect            `json:"effect" yaml:"effect"`
	Conditions       Conditions        `json:"conditions" yaml:"conditions"`
	Source           string            `json:"source,omitempty" yaml:"source,omitempty"`
	Reference        string            `json:"reference,omitempty" yaml:"reference,omitempty"`
	ValidUntil       string            `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
}

// AppliesToCategory reports whether the rule attaches to cat.
func (r *Rule) AppliesToCategory(cat tariff.Category) bool {
	for _, c := range r.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

func pct(v float64) *float64 { return &v }

// BuiltinRules is the default catalog, current as of the December 2025
// Federal Register notices. Order within a category is match order.
func BuiltinRules() []*Rule {
	return []*Rule{
		{
			Code:        "9903.01.26",
			Name:        "USMCA Exemption: Canada Origin",
			Description: "Goods that originate in Canada under USMCA qualify for exemption from Section 232 steel and aluminum duties. All General Approved Exclusions (GAEs) were revoked effective March 12, 2025.",
			Categories:  []tariff.Category{tariff.Section232Steel, tariff.Section232Aluminum},
			AppliesToHSCodes: []string{
				"99038104", "99038106", "99038111", "99038112", "99038119", "99038186", "99038187",
				"99038502", "99038504", "99038507", "99038508", "99038509",
			},
			Effect: EffectExempt,
			Conditions: Conditions{
				OriginCountries: []string{"CA"},
				RequiresUSMCA:   true,
			},
			Source:    "USMCA general note 11 to HTSUS; CBP CSMS guidance",
			Reference: "https://www.cbp.gov/trade/programs-administration/entry-summary/232-tariffs-aluminum-and-steel-faqs",
		},
		{
			Code:        "9903.01.27",
			Name:        "USMCA Exemption: Mexico Origin",
			Description: "Goods that originate in Mexico under USMCA qualify for exemption from Section 232 steel and aluminum duties. All General Approved Exclusions (GAEs) were revoked effective March 12, 2025.",
			Categories:  []tariff.Category{tariff.Section232Steel, tariff.Section232Aluminum},
			AppliesToHSCodes: []string{
				"99038104", "99038106", "99038111", "99038112", "99038119", "99038186", "99038187",
				"99038502", "99038504", "99038507", "99038508", "99038509",
			},
			Effect: EffectExempt,
			Conditions: Conditions{
				OriginCountries: []string{"MX"},
				RequiresUSMCA:   true,
			},
			Source:    "USMCA general note 11 to HTSUS; CBP CSMS guidance",
			Reference: "https://www.cbp.gov/trade/programs-administration/entry-summary/232-tariffs-aluminum-and-steel-faqs",
		},
		{
			Code:             "9903.81.92",
			Name:             "U.S.-Origin Steel Exemption",
			Description:      "Derivative steel articles made from steel melted and poured in the United States qualify for 0% tariff rate.",
			Categories:       []tariff.Category{tariff.Section232Steel},
			AppliesToHSCodes: []string{"99038106", "99038111", "99038112", "99038119", "99038186", "99038187"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				RequiresUSMeltCast: true,
			},
			Source:    "Presidential Proclamation 9980; CBP Section 232 Steel FAQs",
			Reference: "https://www.cbp.gov/trade/programs-administration/entry-summary/232-tariffs-aluminum-and-steel-faqs",
		},
		{
			Code:             "US_ORIGIN_ALUMINUM",
			Name:             "U.S.-Origin Aluminum Exemption",
			Description:      "Derivative aluminum articles made exclusively from aluminum smelted and cast in the United States qualify for exemption from Section 232 duties.",
			Categories:       []tariff.Category{tariff.Section232Aluminum},
			AppliesToHSCodes: []string{"99038504", "99038507", "99038508", "99038509"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				RequiresUSMeltCast: true,
			},
			Source:    "CBP Section 232 FAQs; Presidential Proclamation",
			Reference: "https://www.cbp.gov/trade/programs-administration/entry-summary/232-tariffs-aluminum-and-steel-faqs",
		},
		{
			Code:        "PRODUCT_EXCLUSION_232",
			Name:        "Commerce Product-Specific Exclusion",
			Description: "Time-limited product exclusion granted by the U.S. Department of Commerce (valid 1 year or until quantity exhausted). Commerce is no longer processing new exclusion requests as of Feb 10, 2025.",
			Categories:  []tariff.Category{tariff.Section232Steel, tariff.Section232Aluminum},
			AppliesToHSCodes: []string{
				"99038104", "99038106", "99038111", "99038112", "99038119", "99038186", "99038187",
				"99038502", "99038504", "99038507", "99038508", "99038509",
			},
			Effect: EffectExempt,
			Conditions: Conditions{
				Expression: `'commerce_exclusion_approved' in Answers && Answers['commerce_exclusion_approved'] == true`,
			},
			Source:    "CBP Active Section 232 Product Exclusions list (updated weekly)",
			Reference: "https://www.cbp.gov/trade/programs-administration/entry-summary/section-232-exclusions",
		},
		{
			Code:             "9903.88.69",
			Name:             "USTR Product-Specific Exclusion (164 products)",
			Description:      "164 product-specific exclusions covering certain industrial equipment, EVs, batteries, critical minerals, semiconductors and solar cells. Extended through November 10, 2026.",
			Categories:       []tariff.Category{tariff.Section301},
			AppliesToHSCodes: []string{"99038803", "99038804", "99038809", "99038815"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				OriginCountries: []string{"CN", "HK", "MO"},
				Expression:      `'ustr_product_exclusion' in Answers && Answers['ustr_product_exclusion'] == true`,
			},
			Source:     "USTR Federal Register Notice; U.S. note 20(vvv) to subchapter III of chapter 99",
			Reference:  "https://www.federalregister.gov/documents/2025/09/02/2025-16733/notice-of-product-exclusion-extensions-chinas-acts-policies-and-practices-related-to-technology",
			ValidUntil: "2026-11-10",
		},
		{
			Code:             "9903.88.70",
			Name:             "USTR Manufacturing Equipment Exclusion (14 products)",
			Description:      "14 exclusions for manufacturing equipment related to solar manufacturing and other technologies. Extended through November 10, 2026.",
			Categories:       []tariff.Category{tariff.Section301},
			AppliesToHSCodes: []string{"99038803", "99038804", "99038809", "99038815"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				OriginCountries: []string{"CN", "HK", "MO"},
				Expression:      `'ustr_manufacturing_equipment' in Answers && Answers['ustr_manufacturing_equipment'] == true`,
			},
			Source:     "USTR Federal Register Notice; U.S. note 20(www) to subchapter III of chapter 99",
			Reference:  "https://www.federalregister.gov/documents/2025/09/02/2025-16733/notice-of-product-exclusion-extensions-chinas-acts-policies-and-practices-related-to-technology",
			ValidUntil: "2026-11-10",
		},
		{
			Code:        "SECTION_321_ELIMINATED",
			Name:        "De Minimis Exemption (Section 321) - ELIMINATED for CN/HK/MO",
			Description: "As of September 2024 the Section 321 de minimis exemption no longer applies to goods from China, Hong Kong, or Macau. These goods are subject to Section 301 duties regardless of shipment value.",
			Categories:  []tariff.Category{tariff.Section301},
			Effect:      EffectNoExemption,
			Source:      "CBP Section 321 Modification",
			Reference:   "https://www.cbp.gov/trade/programs-administration/entry-summary/section-321",
		},
		{
			Code:             "9903.01.34",
			Name:             "U.S. Content Exemption (>20%)",
			Description:      "Products with greater than 20% U.S. content by value are exempt from the IEEPA Reciprocal tariff.",
			Categories:       []tariff.Category{tariff.IEEPAReciprocal},
			AppliesToHSCodes: []string{"99030125"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				MinPercentage: pct(20),
			},
			Source:    "Presidential Proclamation; CBP guidance",
			Reference: "https://www.cbp.gov/trade/remedies/ieepa",
		},
		{
			Code:             "9903.01.21",
			Name:             "Informational Materials Exemption",
			Description:      "Informational materials (books, films, CDs, posters, artwork) are exempt from IEEPA tariffs.",
			Categories:       []tariff.Category{tariff.IEEPAReciprocal},
			AppliesToHSCodes: []string{"99030125", "99030136"},
			Effect:           EffectExempt,
			Conditions: Conditions{
				Expression: `'is_informational_materials' in Answers && Answers['is_informational_materials'] == true`,
			},
			Source:    "Presidential Proclamation; CBP guidance",
			Reference: "https://www.cbp.gov/trade/remedies/ieepa",
		},
		{
			Code:             "9903.01.33",
			Name:             "Section 232 Exempts IEEPA Reciprocal",
			Description:      "If Section 232 tariffs apply, IEEPA Reciprocal (9903.01.25) is automatically exempt.",
			Categories:       []tariff.Category{tariff.IEEPAReciprocal},
			AppliesToHSCodes: []string{"99030125"},
			Effect:           EffectExempt,
			// Applied structurally by the analyzer when any Section 232
			// tariff is present; carries no answer-driven conditions.
			Source:    "CBP Stacking Guidance",
			Reference: "https://www.cbp.gov/trade/remedies/ieepa",
		},
	}
}
