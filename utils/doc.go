// Package utils provides small helpers shared by the loader, the reconciler
// and the query layer.
//
// It contains:
//   - GTFS service date and clock-time conversion
//   - Great-circle distance calculation
package utils
