// Package gem holds the data model of the three-plane GEM tracker.
//
// Responsibilities: hits, three-hit tracks, the fixed plane depths and the
// event set the alignment and diagnostics packages operate on.
// Key types: Hit, Track, EventSet, Depths, Samples.
//
// No numerical fitting and no file IO live in this package.
package gem
