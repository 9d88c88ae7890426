// Package diagnostics derives per-event quality figures from aligned tracks:
// leave-one-out extrapolation residuals and SVD track direction angles.
//
// The residuals here are exactly determined two-point extrapolations and are
// deliberately separate from the three-point chi-square of package fit.
package diagnostics
