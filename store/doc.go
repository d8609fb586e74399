// Package store defines the record persistence contract used by the token managers and
// the auth engine.
//
// Filters are exact-match equality conjunctions over top-level fields. Update returns
// the number of records it matched, which callers use as a compare-and-swap result:
// an update whose filter names the expected prior state wins only when it matched one
// record.
//
// Adapters live in sub-packages: memstore (in-process, unique-index aware) and
// mongostore (MongoDB).
package store
