// Package domain models Italian road-work (lavori stradali) observations
// aggregated from heterogeneous public sources.
//
// # Sources and precision
//
// Observations arrive from three source families with very different
// geographic precision:
//
//   - OpenStreetMap construction geometry, queried through the Overpass
//     API: point or way-centroid coordinates, typically GPS-accurate.
//   - Municipal press-office RSS/Atom feeds: text only; a position hint is
//     built from the item title and resolved through a geocoder, giving
//     street- or block-level precision at best.
//   - Regional open-data portals publishing GeoJSON: Point features, or
//     the first vertex of a (Multi)LineString taken as a representative
//     point for the whole stretch of works.
//
// Because the same physical work site can surface from several sources at
// slightly different coordinates, identity is spatial: two points closer
// than the proximity threshold (see [DefaultDedupRadiusMeters]) are the
// same work. There is no stronger uniqueness key.
//
// # Region codes
//
// Regions are the official two-letter Italian province abbreviations
// ("sigle automobilistiche"): Milano → MI, Roma → RM. Derivation is
// text-first (the province table in regions.go), falling back to reverse
// geocoding. The sentinel "unknown" is stored when nothing matches; the
// column is never null.
//
// # Cost mentions
//
// Announcements often quote a budget in prose: "lavori da 2,5 milioni di
// euro", "intervento da 500.000 €". [ExtractCost] keeps the matched
// substring verbatim. It is a human-readable mention, deliberately lossy;
// downstream consumers must not parse it as an amount.
//
// # Suppression-only lifecycle
//
// A run inserts records whose coordinates are new relative to the store
// snapshot and to earlier acceptances in the same run. Re-observing a
// known point suppresses the new record; the stored row is not refreshed.
// Whether a stale row should ever be re-confirmed is an open product
// question tracked in DESIGN.md.
package domain
