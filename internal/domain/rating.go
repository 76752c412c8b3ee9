package domain

// RatingInfo is one entry of the fire danger rating table: a feed label with
// its numeric severity and official AFDRS display colour.
type RatingInfo struct {
	Label    string `json:"label"`
	Severity int    `json:"severity"`
	Colour   string `json:"colour"`
	Icon     string `json:"icon,omitempty"`
}

// UnknownLabel is the sentinel label for unrecognized or missing ratings.
const UnknownLabel = "UNKNOWN"

// Unknown covers any label not in the fixed rating set. Severity -1 sorts
// below NO RATING so a real rating always wins worst-day aggregation.
var Unknown = RatingInfo{
	Label:    UnknownLabel,
	Severity: -1,
	Colour:   "#808080",
	Icon:     "mdi:help-circle-outline",
}

// Ratings lists the recognized rating labels in ascending severity order.
// Colours follow the Australian Fire Danger Rating System (AFDRS) signage.
var Ratings = []RatingInfo{
	{Label: "NO RATING", Severity: 0, Colour: "#ACACAC", Icon: "mdi:shield-check"},
	{Label: "LOW-MODERATE", Severity: 1, Colour: "#8DC44D", Icon: "mdi:fire"},
	{Label: "MODERATE", Severity: 2, Colour: "#4EA346", Icon: "mdi:fire"},
	{Label: "HIGH", Severity: 3, Colour: "#F5C518", Icon: "mdi:fire-alert"},
	{Label: "EXTREME", Severity: 4, Colour: "#E55B25", Icon: "mdi:alert-octagon"},
	{Label: "CATASTROPHIC", Severity: 5, Colour: "#CC2200", Icon: "mdi:skull-crossbones"},
}

var ratingByLabel = func() map[string]RatingInfo {
	m := make(map[string]RatingInfo, len(Ratings))
	for _, r := range Ratings {
		m[r.Label] = r
	}
	return m
}()

// Resolve maps a rating label to its RatingInfo. The lookup is total:
// case-sensitive exact matches hit the fixed table, everything else falls
// back to [Unknown].
func Resolve(label string) RatingInfo {
	if r, ok := ratingByLabel[label]; ok {
		return r
	}
	return Unknown
}
