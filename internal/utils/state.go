package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidState is returned when NormalizeUSState is given an unknown value.
var ErrInvalidState = errors.New("invalid US state or territory")

var nonAlphaNum = regexp.MustCompile(`[^A-Z0-9]+`)

// stateMap maps two-letter codes and full names (without punctuation) to
// canonical USPS codes. Lease signatures and disclosure lookups key off the
// canonical code, so anything a listing form might contain must normalize.
var stateMap = map[string]string{
	"AL": "AL", "ALABAMA": "AL",
	"AK": "AK", "ALASKA": "AK",
	"AZ": "AZ", "ARIZONA": "AZ",
	"AR": "AR", "ARKANSAS": "AR",
	"CA": "CA", "CALIFORNIA": "CA",
	"CO": "CO", "COLORADO": "CO",
	"CT": "CT", "CONNECTICUT": "CT",
	"DE": "DE", "DELAWARE": "DE",
	"FL": "FL", "FLORIDA": "FL",
	"GA": "GA", "GEORGIA": "GA",
	"HI": "HI", "HAWAII": "HI",
	"ID": "ID", "IDAHO": "ID",
	"IL": "IL", "ILLINOIS": "IL",
	"IN": "IN", "INDIANA": "IN",
	"IA": "IA", "IOWA": "IA",
	"KS": "KS", "KANSAS": "KS",
	"KY": "KY", "KENTUCKY": "KY",
	"LA": "LA", "LOUISIANA": "LA",
	"ME": "ME", "MAINE": "ME",
	"MD": "MD", "MARYLAND": "MD",
	"MA": "MA", "MASSACHUSETTS": "MA",
	"MI": "MI", "MICHIGAN": "MI",
	"MN": "MN", "MINNESOTA": "MN",
	"MS": "MS", "MISSISSIPPI": "MS",
	"MO": "MO", "MISSOURI": "MO",
	"MT": "MT", "MONTANA": "MT",
	"NE": "NE", "NEBRASKA": "NE",
	"NV": "NV", "NEVADA": "NV",
	"NH": "NH", "NEWHAMPSHIRE": "NH",
	"NJ": "NJ", "NEWJERSEY": "NJ",
	"NM": "NM", "NEWMEXICO": "NM",
	"NY": "NY", "NEWYORK": "NY",
	"NC": "NC", "NORTHCAROLINA": "NC",
	"ND": "ND", "NORTHDAKOTA": "ND",
	"OH": "OH", "OHIO": "OH",
	"OK": "OK", "OKLAHOMA": "OK",
	"OR": "OR", "OREGON": "OR",
	"PA": "PA", "PENNSYLVANIA": "PA",
	"RI": "RI", "RHODEISLAND": "RI",
	"SC": "SC", "SOUTHCAROLINA": "SC",
	"SD": "SD", "SOUTHDAKOTA": "SD",
	"TN": "TN", "TENNESSEE": "TN",
	"TX": "TX", "TEXAS": "TX",
	"UT": "UT", "UTAH": "UT",
	"VT": "VT", "VERMONT": "VT",
	"VA": "VA", "VIRGINIA": "VA",
	"WA": "WA", "WASHINGTON": "WA",
	"WV": "WV", "WESTVIRGINIA": "WV",
	"WI": "WI", "WISCONSIN": "WI",
	"WY": "WY", "WYOMING": "WY",
	"DC": "DC", "DISTRICTOFCOLUMBIA": "DC",
	"PR": "PR", "PUERTORICO": "PR",
	"GU": "GU", "GUAM": "GU",
	"VI": "VI", "VIRGINISLANDS": "VI",
}

// NormalizeUSState returns the canonical two-letter USPS code for the given
// input. The function is case-insensitive and ignores punctuation and
// whitespace.
func NormalizeUSState(s string) (string, error) {
	cleaned := strings.ToUpper(s)
	cleaned = nonAlphaNum.ReplaceAllString(cleaned, "")
	if code, ok := stateMap[cleaned]; ok {
		return code, nil
	}
	return "", ErrInvalidState
}
