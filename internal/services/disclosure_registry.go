package services

// Disclosure is one state-mandated notice a signer must acknowledge before
// an e-signature is accepted.
type Disclosure struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// DisclosureRegistry resolves the set of disclosures required for a property's
// state. Lease signing refuses to proceed until all of them are acknowledged.
type DisclosureRegistry interface {
	RequiredDisclosures(stateCode string) []Disclosure
}

type staticDisclosureRegistry struct{}

func NewDisclosureRegistry() DisclosureRegistry {
	return &staticDisclosureRegistry{}
}

// eSignConsent is required everywhere under ESIGN/UETA.
var eSignConsent = Disclosure{Code: "esign_consent", Title: "Consent to Electronic Signatures and Records"}

var stateDisclosures = map[string][]Disclosure{
	"CA": {
		{Code: "ca_prop65", Title: "Proposition 65 Warning"},
		{Code: "ca_megan_law", Title: "Megan's Law Database Notice"},
		{Code: "ca_bedbug", Title: "Bed Bug Disclosure"},
	},
	"NY": {
		{Code: "ny_sprinkler", Title: "Sprinkler System Notice"},
		{Code: "ny_bedbug", Title: "Bedbug Infestation History"},
	},
	"TX": {
		{Code: "tx_parking", Title: "Parking and Towing Rules"},
		{Code: "tx_security_device", Title: "Security Device Notice"},
	},
	"FL": {
		{Code: "fl_radon", Title: "Radon Gas Disclosure"},
	},
	"WA": {
		{Code: "wa_mold", Title: "Mold Information Disclosure"},
	},
	"IL": {
		{Code: "il_radon", Title: "Radon Hazard Disclosure"},
	},
	"NJ": {
		{Code: "nj_flood", Title: "Flood Zone Notice"},
		{Code: "nj_truth_in_renting", Title: "Truth in Renting Statement"},
	},
}

func (r *staticDisclosureRegistry) RequiredDisclosures(stateCode string) []Disclosure {
	out := []Disclosure{eSignConsent}
	out = append(out, stateDisclosures[stateCode]...)
	return out
}
