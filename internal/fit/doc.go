// Package fit implements the per-event straight-line fit and the chi-square
// cost that drives plane alignment.
//
// Convention: depth is regressed onto the transverse coordinate,
// z ≈ Slope·u + Intercept, by an SVD solve of the 3×2 design matrix
// [[u_i, 1]] against the plane depths. The cost is expressed in depth units.
// The alignment gradient is taken of this same cost, so the convention must
// not change in one place only.
package fit
