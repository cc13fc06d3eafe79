package power

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// archiveFormat tags the persistence layout. Readers reject anything
// else.
const archiveFormat = "power-spectrum/v1"

type archiveDoc struct {
	Format  string        `json:"format"`
	Spectra []*archiveSpec `json:"spectra"`
}

type archiveSpec struct {
	Kind      string            `json:"kind"`
	KEdges    []float64         `json:"kedges"`
	MuEdges   []float64         `json:"muedges,omitempty"`
	Ells      []int             `json:"ells,omitempty"`
	K         []float64         `json:"k"`
	Mu        []float64         `json:"mu,omitempty"`
	Nmodes    []int64           `json:"nmodes"`
	ValueRe   []float64         `json:"value_re"`
	ValueIm   []float64         `json:"value_im"`
	ShotNoise float64           `json:"shotnoise"`
	Wnorm     float64           `json:"wnorm"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

func toArchive(s *Spectrum) *archiveSpec {
	doc := &archiveSpec{
		Kind:      string(s.Kind),
		KEdges:    s.KEdges,
		MuEdges:   s.MuEdges,
		Ells:      s.Ells,
		K:         s.K,
		Mu:        s.Mu,
		Nmodes:    s.Nmodes,
		ShotNoise: s.ShotNoise,
		Wnorm:     s.Wnorm,
		Attrs:     s.Attrs,
	}
	doc.ValueRe = make([]float64, len(s.Value))
	doc.ValueIm = make([]float64, len(s.Value))
	for i, v := range s.Value {
		doc.ValueRe[i] = real(v)
		doc.ValueIm[i] = imag(v)
	}
	return doc
}

func fromArchive(doc *archiveSpec) (*Spectrum, error) {
	kind := StatKind(doc.Kind)
	if kind != Multipole && kind != Wedge {
		return nil, fmt.Errorf("%w: statistic kind %q", ErrUnknownFormat, doc.Kind)
	}
	if len(doc.ValueRe) != len(doc.ValueIm) {
		return nil, fmt.Errorf("%w: value component lengths %d/%d",
			ErrUnknownFormat, len(doc.ValueRe), len(doc.ValueIm))
	}
	s := &Spectrum{
		Kind:      kind,
		KEdges:    doc.KEdges,
		MuEdges:   doc.MuEdges,
		Ells:      doc.Ells,
		K:         doc.K,
		Mu:        doc.Mu,
		Nmodes:    doc.Nmodes,
		ShotNoise: doc.ShotNoise,
		Wnorm:     doc.Wnorm,
		Attrs:     doc.Attrs,
	}
	s.Value = make([]complex128, len(doc.ValueRe))
	for i := range s.Value {
		s.Value[i] = complex(doc.ValueRe[i], doc.ValueIm[i])
	}
	return s, nil
}

// Save writes one or more spectra as a single self-describing archive:
// a zstd-compressed JSON document. Complex values are stored as split
// real/imaginary arrays, so float64 contents round-trip exactly.
func Save(w io.Writer, spectra ...*Spectrum) error {
	doc := archiveDoc{Format: archiveFormat}
	for _, s := range spectra {
		doc.Spectra = append(doc.Spectra, toArchive(s))
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("power: open archive writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(&doc); err != nil {
		zw.Close()
		return fmt.Errorf("power: encode archive: %w", err)
	}
	return zw.Close()
}

// Load reads an archive written by Save. Unrecognized format tags or
// statistic kinds fail with ErrUnknownFormat.
func Load(r io.Reader) ([]*Spectrum, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a zstd archive: %v", ErrUnknownFormat, err)
	}
	defer zr.Close()
	var doc archiveDoc
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if doc.Format != archiveFormat {
		return nil, fmt.Errorf("%w: format tag %q", ErrUnknownFormat, doc.Format)
	}
	out := make([]*Spectrum, 0, len(doc.Spectra))
	for _, d := range doc.Spectra {
		s, err := fromArchive(d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveFile writes an archive to path.
func SaveFile(path string, spectra ...*Spectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("power: create archive: %w", err)
	}
	if err := Save(f, spectra...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads an archive from path.
func LoadFile(path string) ([]*Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("power: open archive: %w", err)
	}
	defer f.Close()
	return Load(f)
}
