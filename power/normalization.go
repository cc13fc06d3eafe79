package power

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-lss/mesh"
)

// NormalizationFromNbar is the analytic normalization of a field with
// uniform expected number density nbar and total weight sumw:
// wnorm = nbar * sumw. A non-positive result is degenerate.
func NormalizationFromNbar(nbar, sumw float64) (float64, error) {
	wnorm := nbar * sumw
	if !(wnorm > 0) || math.IsInf(wnorm, 0) {
		return 0, fmt.Errorf("%w: nbar=%v sumw=%v", ErrDegenerateNormalization, nbar, sumw)
	}
	return wnorm, nil
}

// FieldNormalization estimates the normalization from painted fields as
// the cell sum of a*b divided by the cell volume. Pass the same mesh
// twice for a single field; pass a data and a randoms field for the
// cross estimate, which is free of the Poisson self-pair bias, and scale
// the result by alpha. A collective call, identical on every rank.
func FieldNormalization(a, b *mesh.Mesh) (float64, error) {
	if b == nil || b == a {
		sq := a.SumSquaresGlobal()
		return checkNorm(sq / a.CellVolume())
	}
	if a.Shape() != b.Shape() {
		return 0, fmt.Errorf("%w: field shapes %v and %v", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	if a.Kind() != b.Kind() {
		return 0, fmt.Errorf("%w: field kinds %v and %v", ErrShapeMismatch, a.Kind(), b.Kind())
	}
	local := 0.0
	if a.Kind() == mesh.KindComplex {
		ca, cb := a.ComplexSlab(), b.ComplexSlab()
		for i, v := range ca {
			local += real(v)*real(cb[i]) + imag(v)*imag(cb[i])
		}
	} else {
		local = floats.Dot(a.RealSlab(), b.RealSlab())
	}
	return checkNorm(a.Comm().SumFloat64(local) / a.CellVolume())
}

func checkNorm(wnorm float64) (float64, error) {
	if !(wnorm > 0) || math.IsInf(wnorm, 0) {
		return 0, fmt.Errorf("%w: field normalization %v", ErrDegenerateNormalization, wnorm)
	}
	return wnorm, nil
}

// catalogShotNoise is the Poisson noise floor of a catalog-derived auto
// spectrum: (sum w_data^2 + alpha^2 sum w_randoms^2) / wnorm. Cross
// spectra of independent catalogs carry no shot noise and skip this.
func catalogShotNoise(sumw2Data, alpha, sumw2Randoms, wnorm float64) float64 {
	return (sumw2Data + alpha*alpha*sumw2Randoms) / wnorm
}
