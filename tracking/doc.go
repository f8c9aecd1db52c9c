// Package tracking turns live GTFS-Realtime feeds into realtime snapshots.
//
// Each poll cycle fetches every configured feed in turn, resolves the
// operator's raw trip, route and stop ids against the namespaced schedule
// index and installs the result as one immutable Snapshot.
//
// # Identity resolution
//
// Feeds report ids without the region namespace and sometimes in truncated
// form. Resolver applies "exact-then-suffix" resolution:
//
//  1. exact: prefix + raw id is a known trip
//  2. suffix: the first trip, in load order, whose id ends with the raw id
//  3. the same two steps against route ids
//  4. otherwise the raw ids are kept and display fields are "?"
//
// Suffix ties are broken by load order (regions in configured order, rows in
// file order), so the outcome is reproducible for a given configuration.
package tracking
