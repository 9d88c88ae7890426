// Package align estimates the transverse offset of one GEM plane by gradient
// descent on the chi-square cost of package fit.
//
// The x and y offsets are independent one-dimensional problems. AlignPlanes
// runs them as two tasks on disjoint coordinate columns and joins them before
// the corrected coordinates are written back into the event set.
package align
