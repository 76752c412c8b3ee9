package domain

// Attribution credits the upstream data source on outward-facing surfaces.
const Attribution = "Data provided by the Country Fire Authority (CFA) Victoria, Australia"

// The nine CFA fire districts, keyed by feed URL slug.
var districtNames = map[string]string{
	"north-central":            "North Central",
	"south-west":               "South West",
	"northern-country":         "Northern Country",
	"north-east":               "North East",
	"central":                  "Central",
	"mallee":                   "Mallee",
	"wimmera":                  "Wimmera",
	"east-gippsland":           "East Gippsland",
	"west-and-south-gippsland": "West & South Gippsland",
}

// Canonical district names as they appear in feed text. Most match the
// display name; West & South Gippsland is spelled out with "and".
var districtFeedNames = map[string]string{
	"west-and-south-gippsland": "West and South Gippsland",
}

// DistrictSlugs returns the slugs of all nine fire districts.
func DistrictSlugs() []string {
	slugs := make([]string, 0, len(districtNames))
	for slug := range districtNames {
		slugs = append(slugs, slug)
	}
	return slugs
}

// DistrictName returns the display name for a district slug, or the slug
// itself when unrecognized.
func DistrictName(slug string) string {
	if name, ok := districtNames[slug]; ok {
		return name
	}
	return slug
}

// DistrictFeedName returns the district name as it appears in CFA feed text.
func DistrictFeedName(slug string) string {
	if name, ok := districtFeedNames[slug]; ok {
		return name
	}
	return DistrictName(slug)
}

// KnownDistrict reports whether slug names one of the nine fire districts.
func KnownDistrict(slug string) bool {
	_, ok := districtNames[slug]
	return ok
}
