// Package routecache resolves a transit line and direction into drawable coordinates.
//
// A Cache owns three pieces of shared state: the static topology (stops and
// line routes, loaded at most once), a bounded polyline cache evicting in
// insertion order, and a registry of in-flight geometry fetches so that
// concurrent requests for the same line and direction share one network call.
//
// Every operation degrades to an empty or stop-derived result instead of
// returning an error, so map rendering never fails on missing topology.
package routecache
