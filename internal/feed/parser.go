package feed

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
)

var (
	// ErrMalformed indicates the document is not a well-formed feed.
	ErrMalformed = errors.New("malformed feed")
	// ErrEmpty indicates a well-formed feed with zero forecast items.
	ErrEmpty = errors.New("feed contains no forecast items")
	// ErrNoRatings indicates a combined feed that parsed but yielded no
	// recognizable rating for any tracked district; the feed structure has
	// likely changed and callers should fall back to per-district feeds.
	ErrNoRatings = errors.New("combined feed contained no recognizable ratings")
)

var (
	// dayTitleRe accepts forecast item titles, which open with a day label.
	// Non-forecast items ("Fire restrictions by municipality") are skipped.
	dayTitleRe = regexp.MustCompile(`(?i)^(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday|Today|Tomorrow)`)

	// ratingLineRe matches district-qualified rating lines,
	// e.g. "Mallee: HIGH" or "West and South Gippsland: CATASTROPHIC".
	ratingLineRe *regexp.Regexp

	// Total Fire Ban phrases, in evaluation order: explicit negation first,
	// then statewide declarations, then district-list declarations.
	tfbNoRe        = regexp.MustCompile(`(?i)is\s+not\s+currently\s+a\s+day\s+of\s+Total\s+Fire\s+Ban`)
	tfbStatewideRe = regexp.MustCompile(`(?i)whole\s+State\s+of\s+Victoria|statewide`)
	tfbDeclaredRe  = regexp.MustCompile(`(?i)(?:has\s+been\s+)?declared\s+a\s+day\s+of\s+Total\s+Fire\s+Ban|is\s+(?:currently\s+)?a\s+day\s+of\s+Total\s+Fire\s+Ban`)
	// tfbDistrictListRe captures the text between the declaration and the
	// trailing "district(s)", which lists the affected districts.
	tfbDistrictListRe = regexp.MustCompile(`(?is)Total\s+Fire\s+Ban\s+(?:in\s+the\s+|for\s+the\s+)(.*?)(?:district\(?s?\)?|$)`)

	// issuedAtRe captures the Bureau of Meteorology issue line,
	// e.g. "forecast issued at: 16:49 on 13 January 2026".
	issuedAtRe = regexp.MustCompile(`(?i)forecast\s+issued\s+at:?\s*(\d{1,2}:\d{2}\s+on\s+\d{1,2}\s+\w+\s+\d{4})`)

	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// issuedAtLayout matches the BoM issue line time format, "16:49 on 13 January 2026".
const issuedAtLayout = "15:04 on 2 January 2006"

// melbourne is the zone the issue line's wall-clock time is stated in; the
// feed carries no offset. Falls back to UTC if tzdata is unavailable (the
// binaries embed it via time/tzdata).
var melbourne = func() *time.Location {
	loc, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		return time.UTC
	}
	return loc
}()

func init() {
	names := make([]string, 0, len(domain.DistrictSlugs()))
	for _, slug := range domain.DistrictSlugs() {
		names = append(names, regexp.QuoteMeta(domain.DistrictFeedName(slug)))
	}
	// Longer names first so "North Central" wins over "Central".
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	labels := make([]string, 0, len(domain.Ratings))
	for _, r := range domain.Ratings {
		labels = append(labels, regexp.QuoteMeta(r.Label))
	}
	sort.Slice(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })

	ratingLineRe = regexp.MustCompile(
		`(?i)(?:^|\b)(` + strings.Join(names, "|") + `):\s*(` + strings.Join(labels, "|") + `)`,
	)
}

// Parser turns raw CFA RSS text into domain forecast sets.
type Parser struct {
	fp *gofeed.Parser
}

// NewParser creates a feed parser.
func NewParser() *Parser {
	return &Parser{fp: gofeed.NewParser()}
}

// feedItem is one forecast <item> after envelope parsing.
type feedItem struct {
	title       string
	description string
}

// parseEnvelope parses the RSS envelope, returning the channel publish time
// and the forecast items in document order.
func (p *Parser) parseEnvelope(raw string) (*time.Time, []feedItem, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	parsed, err := p.fp.ParseString(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]feedItem, 0, domain.MaxForecastDays)
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if !dayTitleRe.MatchString(title) {
			continue
		}
		items = append(items, feedItem{title: title, description: item.Description})
	}
	if len(items) == 0 {
		return nil, nil, ErrEmpty
	}
	if len(items) > domain.MaxForecastDays {
		items = items[:domain.MaxForecastDays]
	}

	return parsed.PublishedParsed, items, nil
}

// ParseDistrict parses a per-district feed into a ForecastSet for slug.
// Items map positionally onto today/tomorrow/day 3/day 4; a feed with fewer
// than four items yields a short, still-valid set.
func (p *Parser) ParseDistrict(raw, slug string) (*domain.ForecastSet, error) {
	publishedAt, items, err := p.parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	feedName := domain.DistrictFeedName(slug)
	set := &domain.ForecastSet{
		DistrictSlug: slug,
		DistrictName: domain.DistrictName(slug),
		PublishedAt:  publishedAt,
		Days:         make([]domain.DayForecast, 0, len(items)),
	}
	for _, item := range items {
		set.Days = append(set.Days, parseItem(item, feedName))
	}
	return set, nil
}

// ParseCombined parses the all-districts feed into one ForecastSet per
// tracked slug. When every tracked district comes back all-UNKNOWN the feed
// structure has likely changed and ErrNoRatings is returned so callers can
// fall back to per-district feeds.
func (p *Parser) ParseCombined(raw string, slugs []string) (map[string]*domain.ForecastSet, error) {
	publishedAt, items, err := p.parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*domain.ForecastSet, len(slugs))
	for _, slug := range slugs {
		result[slug] = &domain.ForecastSet{
			DistrictSlug: slug,
			DistrictName: domain.DistrictName(slug),
			PublishedAt:  publishedAt,
			Days:         make([]domain.DayForecast, 0, len(items)),
		}
	}
	for _, item := range items {
		for _, slug := range slugs {
			set := result[slug]
			set.Days = append(set.Days, parseItem(item, domain.DistrictFeedName(slug)))
		}
	}

	anyRated := false
	for _, set := range result {
		for _, d := range set.Days {
			if d.Rating.Label != domain.UnknownLabel {
				anyRated = true
			}
		}
	}
	if !anyRated && len(slugs) > 0 {
		return nil, ErrNoRatings
	}
	return result, nil
}

// parseItem extracts one DayForecast from a forecast item for the named
// district. The item title is the day label; rating, Total Fire Ban status,
// and issue time come from the stripped description text.
func parseItem(item feedItem, feedName string) domain.DayForecast {
	text := stripHTML(item.description)

	day := domain.DayForecast{
		DateLabel:    item.title,
		Rating:       extractRating(text, feedName),
		TotalFireBan: extractTotalFireBan(text, feedName),
	}

	if m := issuedAtRe.FindStringSubmatch(text); m != nil {
		day.IssuedAtRaw = strings.TrimSpace(m[1])
		if t, err := time.ParseInLocation(issuedAtLayout, day.IssuedAtRaw, melbourne); err == nil {
			day.IssuedAt = &t
		}
	}

	return day
}

// extractRating finds the rating for the named district. A district-qualified
// "<District>: <RATING>" line wins; otherwise the longest known rating label
// contained anywhere in the text is used, so "LOW-MODERATE" is never
// misread as "MODERATE" and a bare "HIGH" inside adjacent text never
// shadows a more specific label.
func extractRating(text, feedName string) domain.RatingInfo {
	for _, m := range ratingLineRe.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(strings.TrimSpace(m[1]), feedName) {
			return domain.Resolve(strings.ToUpper(m[2]))
		}
	}

	// Fallback for feeds without district-qualified lines: longest match wins.
	upper := strings.ToUpper(text)
	best := ""
	for _, r := range domain.Ratings {
		if strings.Contains(upper, r.Label) && len(r.Label) > len(best) {
			best = r.Label
		}
	}
	return domain.Resolve(best)
}

// extractTotalFireBan decides the TFB flag for the named district.
//
// The declaration text appears in every district's feed, not just affected
// ones, so a declared ban must be cross-checked against the listed
// districts. No determinable signal defaults to false: ban status defaults
// closed on ambiguity. That polarity is inherited from the source feed's
// text conventions and is flagged for product review in DESIGN.md.
func extractTotalFireBan(text, feedName string) bool {
	if tfbNoRe.MatchString(text) {
		return false
	}
	if tfbStatewideRe.MatchString(text) {
		return true
	}
	if !tfbDeclaredRe.MatchString(text) {
		return false
	}

	m := tfbDistrictListRe.FindStringSubmatch(text)
	if m == nil {
		// Declared but the district list is unparseable: assume it applies.
		return true
	}
	return districtListed(m[1], feedName)
}

// districtListed reports whether feedName appears in a TFB district list.
// Names that nest inside longer ones need care: "Central" must not match
// inside "North Central". Go's RE2 has no lookbehind, so longer district
// names containing the target are blanked out of the list before matching.
func districtListed(list, feedName string) bool {
	for _, slug := range domain.DistrictSlugs() {
		other := domain.DistrictFeedName(slug)
		if strings.EqualFold(other, feedName) {
			continue
		}
		if containsFold(other, feedName) {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(other))
			list = re.ReplaceAllString(list, "")
		}
	}
	re := regexp.MustCompile(`(?i)(^|\W)` + regexp.QuoteMeta(feedName) + `(\W|$)`)
	return re.MatchString(list)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// stripHTML removes tags, decodes entities, and collapses whitespace.
// &nbsp; decodes to U+00A0, which \s does not cover, so it is normalized
// to a plain space first.
func stripHTML(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, " ", " ")
	s = htmlTagRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
