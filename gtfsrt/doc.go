// Package gtfsrt fetches and decodes GTFS-Realtime protobuf feeds.
//
// Decode turns a FeedMessage into raw, un-namespaced vehicle positions and
// trip updates exactly as the operator reported them. Identity resolution
// against the static schedule happens in the tracking package; the resolved
// result is published as a Snapshot.
package gtfsrt
