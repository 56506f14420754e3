package tariff

// Question and answer identifiers shared by the question planner, the
// evaluator, and the exemption catalog. The planner emits questions with
// these IDs; normalized answers come back keyed by them.
const (
	AnsUSMCAQualified             = "usmca_qualified"
	AnsSteelPercentage            = "steel_percentage"
	AnsSteelOriginCountry         = "steel_origin_country"
	AnsSteelMeltedPouredUS        = "steel_melted_poured_us"
	AnsAluminumPercentage         = "aluminum_percentage"
	AnsAluminumOriginCountry      = "aluminum_origin_country"
	AnsAluminumSmeltedCastUS      = "aluminum_smelted_cast_us"
	AnsCopperPercentage           = "copper_percentage"
	AnsLumberPercentage           = "lumber_percentage"
	AnsUSTRProductExclusion       = "ustr_product_exclusion"
	AnsUSTRManufacturingEquipment = "ustr_manufacturing_equipment"
	AnsColumn1DutyRate            = "column_1_duty_rate"
	AnsHumanitarianDonation       = "is_humanitarian_donation"
	AnsUSContentPercentage        = "us_content_percentage"
	AnsInformationalMaterials     = "is_informational_materials"
)

var usmcaOrigins = map[string]bool{"CA": true, "MX": true}

// Section 301 and IEEPA Fentanyl gate on these origins.
var chinaOrigins = map[string]bool{"CN": true, "HK": true, "MO": true}

// Column 2 rate countries: Belarus, Cuba, North Korea, Russia.
var column2Origins = map[string]bool{"BY": true, "CU": true, "KP": true, "RU": true}

// EU member states plus Japan and South Korea use the 15% threshold rule for
// IEEPA Reciprocal: total duty = max(Column 1 rate, 15%).
var specialReciprocalOrigins = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true,
	"JP": true, "KR": true,
}

// IsUSMCAOrigin reports whether origin is Canada or Mexico.
func IsUSMCAOrigin(origin string) bool { return usmcaOrigins[origin] }

// IsChinaOrigin reports whether origin is China, Hong Kong, or Macau.
func IsChinaOrigin(origin string) bool { return chinaOrigins[origin] }

// IsColumn2Origin reports whether origin is a Column 2 rate country.
func IsColumn2Origin(origin string) bool { return column2Origins[origin] }

// IsSpecialReciprocalOrigin reports whether origin uses the EU/JP/KR
// 15% threshold calculation for IEEPA Reciprocal.
func IsSpecialReciprocalOrigin(origin string) bool { return specialReciprocalOrigins[origin] }
