/*
Package gtfs loads static GTFS bundles from several regional operators and
merges them into one namespaced, read-only index.

Every identifier is prefixed with the region's namespace (see RegionPrefix) so
that two operators using the same raw ids never collide:

	EMEL stop "S1"             -> "emel_S1"
	OSEA (Famagusta) trip "T1" -> "osea__famagusta__T1"

# Loading

	loader := gtfs.NewLoader(cfg.Schedule, loc, log)
	idx, err := loader.Load(ctx)

A region is a directory of CSV files or a .zip archive. Missing optional files
mean "none of this entity", malformed rows are skipped, and stops are
deduplicated by raw id within a region. When day filtering is enabled and the
region's calendar has services active today, only those trips (and their stop
times) are kept; an empty active set keeps every trip.

# Lookups

The index precomputes stop->arrivals, route->stops and route->shapes buckets
at load time:

	idx.StopsForRoute("emel_R1")
	idx.ShapesForRoute("emel_R1")
	idx.TimetableForStop("emel_S1")

TripIDs returns trips in load order, which makes suffix-based identity
resolution deterministic.
*/
package gtfs
