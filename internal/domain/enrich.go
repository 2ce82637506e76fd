package domain

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// CostUnknown is the sentinel stored when no monetary mention is found.
const CostUnknown = "unknown"

var (
	// provinceCodeRe matches a bare two-letter province code delimited by
	// word boundaries, e.g. "tangenziale BO, corsia chiusa". Uppercase only:
	// lowercase pairs are far too common in Italian prose ("mi", "ne", "le").
	provinceCodeRe = buildProvinceCodeRe()

	// costRe matches a numeric token, with or without Italian separators
	// ("." thousands, "," decimals), immediately followed by a currency or
	// magnitude marker. The match is kept verbatim as a human-readable
	// mention; it is never parsed into an amount. The leading \d+ covers
	// unseparated amounts ("25000 euro") in full rather than a suffix.
	costRe = regexp.MustCompile(`(?i)\d+(?:\.\d{3})*(?:,\d+)?\s*(?:€|euro|eur\b|mln\b|milion[ei])`)
)

func buildProvinceCodeRe() *regexp.Regexp {
	codes := make([]string, 0, len(provinceTable))
	seen := make(map[string]bool, len(provinceTable))
	for _, e := range provinceTable {
		if !seen[e.code] {
			seen[e.code] = true
			codes = append(codes, e.code)
		}
	}
	return regexp.MustCompile(`\b(` + strings.Join(codes, "|") + `)\b`)
}

// matchRegionText runs the two text-level strategies: province-name
// substring lookup, then a bare-code match. Returns "" on miss.
func matchRegionText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, e := range provinceTable {
		if strings.Contains(lower, e.name) {
			return e.code
		}
	}
	if m := provinceCodeRe.FindString(text); m != "" {
		return m
	}
	return ""
}

// ExtractRegion derives the two-letter province code for an event.
// Strategy order: free-text match, bare-code match, reverse geocoding of
// the resolved point with the same text match re-run over the returned
// address components (province, county, city priority). Every miss falls
// through; the final fallback is RegionUnknown, never an empty value.
// A reverse-geocoding failure is logged and treated as a miss.
func ExtractRegion(ctx context.Context, text string, g Geo, rev ReverseGeocoder, logger *slog.Logger) string {
	if code := matchRegionText(text); code != "" {
		return code
	}

	if rev == nil {
		return RegionUnknown
	}

	addr, err := rev.Reverse(ctx, g)
	if err != nil {
		logger.Warn("reverse geocoding failed during region enrichment",
			"lat", g.Lat, "lon", g.Lon, "error", err)
		return RegionUnknown
	}
	if addr == nil {
		return RegionUnknown
	}

	for _, component := range []string{addr.Province, addr.County, addr.City} {
		if code := matchRegionText(component); code != "" {
			return code
		}
	}
	return RegionUnknown
}

// ExtractCost returns the first monetary mention in the text, verbatim,
// or CostUnknown when none is present.
func ExtractCost(text string) string {
	if m := costRe.FindString(text); m != "" {
		return m
	}
	return CostUnknown
}

// startDateLayouts are tried in order when normalizing a raw start-date
// token. Feed items carry RFC1123-style pubDates; open-data properties
// usually carry ISO dates; regional portals favor day-first forms.
var startDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

// NormalizeStartDate converts a raw source date token to YYYY-MM-DD.
// Unparseable or missing tokens fall back to the run date: a raw token is
// never stored.
func NormalizeStartDate(raw string, fallback time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range startDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return fallback.Format("2006-01-02")
}

// BuildRecord turns a resolved event into its canonical persisted form,
// applying all enrichment derivations. Enrichment never fails the record:
// every derivation degrades to an explicit sentinel.
func BuildRecord(ctx context.Context, ev ResolvedEvent, rev ReverseGeocoder, logger *slog.Logger) CanonicalRecord {
	return CanonicalRecord{
		Geo:         ev.Geo,
		Region:      ExtractRegion(ctx, ev.Description, ev.Geo, rev, logger),
		StartDate:   NormalizeStartDate(ev.StartDate, ev.ObservedAt),
		LastSeen:    ev.ObservedAt.Format("2006-01-02"),
		SourceName:  ev.SourceName,
		Description: TruncateDescription(ev.Description),
		Cost:        ExtractCost(ev.Description),
	}
}
