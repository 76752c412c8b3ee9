// Package domain models Country Fire Authority (CFA) Victoria fire danger
// forecast data.
//
// # Data Source
//
// Forecasts originate from the CFA RSS feeds at www.cfa.vic.gov.au. Two feed
// shapes carry the same information:
//
//	combined:     /cfa/rssfeed/tfbfdrforecast_rss.xml        (all districts, 1 request)
//	per-district: /cfa/rssfeed/{slug}-firedistrict_rss.xml   (one district each)
//
// Each feed is a standard RSS document whose <item> elements describe one
// forecast day. Item order is day order: index 0 is today, index 1 tomorrow,
// then day 3 and day 4. Day semantics are positional by convention; items are
// never re-sorted by parsed date, because a malformed date must not shift the
// index-to-day mapping.
//
// # Feed Text Conventions
//
// Item titles carry the day label, e.g. "Today, Tuesday, 14 January 2026" or
// a bare weekday+date. Non-forecast items ("Fire restrictions by
// municipality") are interleaved in the same channel and are skipped.
//
// Item descriptions are loose HTML. After tag stripping they contain:
//
//	Rating lines:  "<District>: <RATING>" per district, e.g. "Mallee: HIGH".
//	               Ratings come from the fixed AFDRS set (see [Ratings]).
//	TFB lines:     "... is not currently a day of Total Fire Ban", or a
//	               declaration "declared a day of Total Fire Ban" followed by
//	               the affected district list, or a statewide phrase.
//	Issue line:    "Bureau of Meteorology forecast issued at: HH:MM on
//	               DD Month YYYY".
//
// District names in feed text differ slightly from display names
// ("West and South Gippsland" vs "West & South Gippsland"); see
// [DistrictFeedName].
//
// # Severity and Colours
//
// Ratings map to a 0–5 severity used for worst-day aggregation and to the
// official AFDRS colours. [Resolve] is total: unrecognized labels resolve to
// [Unknown] (severity -1, neutral grey) and never fail. All consumers take
// severity and colour from this table rather than re-deriving them from
// label text.
package domain
