package power

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func samplePoles() *Spectrum {
	s := uniformPoles(4, []int{0, 2, 4})
	s.ShotNoise = 21.6
	s.Wnorm = 1.6666e8
	s.Attrs = map[string]string{"resampler": "cic", "interlacing": "2"}
	for i := range s.Value {
		s.Value[i] = complex(1.0/3+float64(i), -0.1*float64(i))
	}
	return s
}

func sampleWedges() *Spectrum {
	return &Spectrum{
		Kind:    Wedge,
		KEdges:  []float64{0, 0.1, 0.2},
		MuEdges: []float64{-1, 0, 1},
		K:       []float64{0.05, 0.06, 0.14, 0.15},
		Mu:      []float64{-0.4, 0.4, -0.6, 0.6},
		Nmodes:  []int64{3, 4, 10, 11},
		Value:   []complex128{1 + 2i, 3, -4i, 0.125},
		Wnorm:   2,
	}
}

func requireSpectrumEqual(t *testing.T, got, want *Spectrum) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("spectra differ:\n got %+v\nwant %+v", got, want)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	poles, wedges := samplePoles(), sampleWedges()
	var buf bytes.Buffer
	if err := Save(&buf, poles, wedges); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d spectra", len(loaded))
	}
	requireSpectrumEqual(t, loaded[0], poles)
	requireSpectrumEqual(t, loaded[1], wedges)

	// Behavioral identity: evaluation works on the reloaded container.
	v, err := loaded[0].At(2)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := poles.At(2)
	for i := range v {
		if v[i] != want[i] {
			t.Fatalf("reloaded multipole differs at %d: %v vs %v", i, v[i], want[i])
		}
	}
}

func TestArchiveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "power.zst")
	if err := SaveFile(path, sampleWedges()); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d spectra", len(loaded))
	}
	requireSpectrumEqual(t, loaded[0], sampleWedges())
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not an archive"))); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadRejectsWrongFormatTag(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(`{"format":"something-else/v9","spectra":[]}`)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(&buf); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	doc := `{"format":"power-spectrum/v1","spectra":[{"kind":"bispectrum","kedges":[0,1]}]}`
	if _, err := zw.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(&buf); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
