// Package region maps locale signals to coarse calibration regions and holds
// the per-region difficulty tables. The partition is intentionally coarse:
// it exists to cluster estimation error, not to model deer biology.
package region

import "strings"

// Key is a calibration region bucket.
type Key string

const (
	Midwest    Key = "midwest"
	Southeast  Key = "southeast"
	Northeast  Key = "northeast"
	Plains     Key = "plains"
	SouthTexas Key = "south_texas"
	Northern   Key = "northern"
	Unknown    Key = "unknown"
)

// Source records how a region was determined.
type Source string

const (
	SourceScanInput       Source = "scan_input"
	SourceUserProfile     Source = "user_profile"
	SourceFallbackUnknown Source = "fallback_unknown"
)

// Info is the result of region assignment for one scan.
type Info struct {
	Key    Key
	Source Source
	State  string // normalized two-letter state code, empty for fallback
}

// All lists every configured region, unknown last.
func All() []Key {
	return []Key{Midwest, Southeast, Northeast, Plains, SouthTexas, Northern, Unknown}
}

// stateToRegion is the v1 state partition. West-coast states ride with
// plains for now; Hawaii has too few deer to matter.
var stateToRegion = map[string]Key{
	"TX": SouthTexas,

	"IA": Midwest, "IL": Midwest, "IN": Midwest, "KS": Midwest,
	"MI": Midwest, "MN": Midwest, "MO": Midwest, "ND": Midwest,
	"NE": Midwest, "OH": Midwest, "SD": Midwest, "WI": Midwest,

	"AL": Southeast, "AR": Southeast, "FL": Southeast, "GA": Southeast,
	"KY": Southeast, "LA": Southeast, "MS": Southeast, "NC": Southeast,
	"OK": Southeast, "SC": Southeast, "TN": Southeast, "VA": Southeast,
	"WV": Southeast,

	"CT": Northeast, "DE": Northeast, "MA": Northeast, "MD": Northeast,
	"ME": Northeast, "NH": Northeast, "NJ": Northeast, "NY": Northeast,
	"PA": Northeast, "RI": Northeast, "VT": Northeast,

	"CO": Plains, "MT": Plains, "NM": Plains, "WY": Plains,
	"UT": Plains, "ID": Plains, "NV": Plains, "AZ": Plains,
	"WA": Plains, "OR": Plains, "CA": Plains,

	"AK": Northern,

	"HI": Unknown,
}

// FromState maps a two-letter state code to its region. Unmapped or empty
// codes resolve to Unknown, never an error.
func FromState(state string) Key {
	if state == "" {
		return Unknown
	}
	if r, ok := stateToRegion[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return r
	}
	return Unknown
}

// Determine resolves the region for a scan via the priority chain:
// scan-supplied locale, then the user profile locale, then Unknown.
func Determine(scanState, profileState string) Info {
	if s := normalizeState(scanState); s != "" {
		return Info{Key: FromState(s), Source: SourceScanInput, State: s}
	}
	if s := normalizeState(profileState); s != "" {
		return Info{Key: FromState(s), Source: SourceUserProfile, State: s}
	}
	return Info{Key: Unknown, Source: SourceFallbackUnknown}
}

func normalizeState(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 {
		return ""
	}
	return s
}

// DifficultyMultiplier returns the age-confidence multiplier for a region.
// Lower means age is harder to estimate there.
func DifficultyMultiplier(k Key) float64 {
	switch k {
	case Midwest:
		return 1.00
	case Northeast:
		return 0.95
	case Plains:
		return 0.90
	case Southeast:
		return 0.85
	case SouthTexas:
		return 0.80
	case Northern:
		return 0.90
	default:
		return 0.88
	}
}

// UncertaintyThreshold returns the minimum calibrated age confidence below
// which the age estimate is suppressed. Harder regions demand more.
func UncertaintyThreshold(k Key) float64 {
	switch k {
	case Midwest:
		return 0.55
	case Northeast:
		return 0.60
	case Plains:
		return 0.62
	case Southeast:
		return 0.65
	case SouthTexas:
		return 0.70
	case Northern:
		return 0.62
	default:
		return 0.68
	}
}

// States returns the state codes assigned to a region.
func States(k Key) []string {
	var out []string
	for s, r := range stateToRegion {
		if r == k {
			out = append(out, s)
		}
	}
	return out
}
