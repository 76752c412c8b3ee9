// Command feedcheck fetches and parses a CFA feed once and prints the
// normalized forecast, for verifying feed structure without running the
// service.
//
// Usage:
//
//	go run ./cmd/feedcheck -district mallee
//	go run ./cmd/feedcheck -combined
//	go run ./cmd/feedcheck -district central -url https://example.test/feed.xml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // feed timestamps are Melbourne-local; embed zone data

	"github.com/couchcryptid/cfa-fire-forecast/internal/config"
	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/feed"
)

func main() {
	district := flag.String("district", "", "district slug to fetch (e.g. mallee)")
	combined := flag.Bool("combined", false, "fetch the combined all-districts feed")
	urlOverride := flag.String("url", "", "override the feed URL (for testing mirrors)")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	flag.Parse()

	if *district == "" && !*combined {
		fmt.Fprintln(os.Stderr, "either -district or -combined is required")
		flag.Usage()
		os.Exit(2)
	}
	if *district != "" && !domain.KnownDistrict(*district) {
		fmt.Fprintf(os.Stderr, "unknown district slug %q; known slugs:\n", *district)
		for _, slug := range domain.DistrictSlugs() {
			fmt.Fprintf(os.Stderr, "  %s\n", slug)
		}
		os.Exit(2)
	}

	if code := run(*district, *combined, *urlOverride, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(district string, combined bool, urlOverride string, timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	url := urlOverride
	if url == "" {
		if combined {
			url = cfg.CombinedFeedURL
		} else {
			url = cfg.DistrictURL(district)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := feed.NewFetcher(timeout, logger)
	parser := feed.NewParser()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("fetching %s\n", url)
	raw, err := fetcher.Fetch(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL fetch: %v\n", err)
		return 1
	}
	fmt.Printf("fetched %d bytes\n\n", len(raw))

	if combined {
		slugs := cfg.Districts
		sets, err := parser.ParseCombined(raw, slugs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL parse: %v\n", err)
			return 1
		}
		for _, slug := range slugs {
			printSet(sets[slug])
		}
		return 0
	}

	set, err := parser.ParseDistrict(raw, district)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL parse: %v\n", err)
		return 1
	}
	printSet(set)

	if len(set.Days) < domain.MaxForecastDays {
		fmt.Printf("\nWARN short forecast: %d of %d days\n", len(set.Days), domain.MaxForecastDays)
	}
	return 0
}

func printSet(set *domain.ForecastSet) {
	fmt.Printf("%s (%s)\n", set.DistrictName, set.DistrictSlug)
	if set.PublishedAt != nil {
		fmt.Printf("  published: %s\n", set.PublishedAt.Format(time.RFC3339))
	}
	for i, day := range set.Days {
		tfb := ""
		if day.TotalFireBan {
			tfb = "  TOTAL FIRE BAN"
		}
		issued := ""
		if day.IssuedAtRaw != "" {
			issued = "  (issued " + day.IssuedAtRaw + ")"
		}
		fmt.Printf("  day %d  %-14s %s%s%s\n", i, day.Rating.Label, day.DateLabel, tfb, issued)
	}
	if worst, ok := set.MaxSeverity(); ok {
		fmt.Printf("  worst: %s on %s\n", worst.Rating.Label, worst.DateLabel)
	}
	fmt.Println(strings.Repeat("-", 60))
}
