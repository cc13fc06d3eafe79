// Package legendre evaluates Legendre polynomials P_ell(x), the angular
// weights of the multipole decomposition.
package legendre

// P returns the Legendre polynomial of degree ell at x, via the Bonnet
// recurrence (n+1)P_{n+1} = (2n+1)x P_n - n P_{n-1}.
//
// Negative degrees return 0.
func P(ell int, x float64) float64 {
	switch {
	case ell < 0:
		return 0
	case ell == 0:
		return 1
	case ell == 1:
		return x
	}

	pm1, p := 1.0, x
	for n := 1; n < ell; n++ {
		pm1, p = p, (float64(2*n+1)*x*p-float64(n)*pm1)/float64(n+1)
	}
	return p
}
