package image

import "math"

// Psf is a circular Gaussian point-spread-function model. Real pipelines
// attach far richer models; plugins here only need kernel evaluation and
// the effective width.
type Psf struct {
	Sigma float64
}

// NewPsf constructs a Gaussian PSF with the given width.
func NewPsf(sigma float64) *Psf {
	return &Psf{Sigma: sigma}
}

// Evaluate returns the kernel value at an offset (dx, dy) from the PSF
// center, normalized to unit integral.
func (p *Psf) Evaluate(dx, dy float64) float64 {
	s2 := p.Sigma * p.Sigma
	return math.Exp(-(dx*dx+dy*dy)/(2*s2)) / (2 * math.Pi * s2)
}

// KernelRadius returns the pixel radius beyond which the kernel is
// negligible for measurement purposes.
func (p *Psf) KernelRadius() int {
	return int(math.Ceil(5 * p.Sigma))
}
