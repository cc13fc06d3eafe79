// Package power estimates FFT-based power spectra of particle fields:
// binned (k, mu) wedges and Legendre multipoles, with normalization and
// shot-noise bookkeeping, a rebinnable statistic container with archive
// persistence, and drivers operating on painted meshes or raw catalogs.
//
// All drivers are collective over the process group of the meshes they
// operate on: every rank calls with consistent configuration and receives
// the identical, globally reduced result.
package power

import "errors"

// Errors returned by the estimator and the statistic container.
var (
	ErrConfiguration           = errors.New("power: invalid configuration")
	ErrDegenerateBox           = errors.New("power: degenerate box")
	ErrDegenerateNormalization = errors.New("power: degenerate normalization")
	ErrShapeMismatch           = errors.New("power: shape mismatch")
	ErrUnknownFormat           = errors.New("power: unknown archive format")
	ErrInvalidIndex            = errors.New("power: statistic not measured at requested index")
)
