// Command pkestimate measures the power spectrum of randomly sampled
// periodic-box catalogs and saves the result as an archive.
//
// Usage:
//
//	pkestimate [flags]
//
// The run can be configured by flags alone or by a YAML file given with
// -config; explicitly set flags override file values.
//
// Examples:
//
//	pkestimate -nparticles 100000 -boxsize 1000 -nmesh 128 -out pk.zst
//	pkestimate -config run.yaml
//	pkestimate -workers 4 -ells 0,2,4 -resampler tsc -interlacing 3
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-lss/catalog"
	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/mesh"
	"github.com/cwbudde/algo-lss/power"
)

type runConfig struct {
	Workers     int     `yaml:"workers"`
	Seed        int64   `yaml:"seed"`
	NParticles  int     `yaml:"nparticles"`
	Randoms     int     `yaml:"randoms"`
	BoxSize     float64 `yaml:"boxsize"`
	Nmesh       int     `yaml:"nmesh"`
	Resampler   string  `yaml:"resampler"`
	Interlacing int     `yaml:"interlacing"`
	Ells        string  `yaml:"ells"`
	MuBins      int     `yaml:"mubins"`
	LOS         string  `yaml:"los"`
	KUnique     bool    `yaml:"kunique"`
	KMin        float64 `yaml:"kmin"`
	KMax        float64 `yaml:"kmax"`
	KStep       float64 `yaml:"kstep"`
	Out         string  `yaml:"out"`
}

func defaultConfig() runConfig {
	return runConfig{
		Workers:     1,
		Seed:        42,
		NParticles:  100000,
		BoxSize:     600,
		Nmesh:       64,
		Resampler:   "cic",
		Interlacing: 2,
		Ells:        "0,2,4",
		LOS:         "z",
	}
}

func main() {
	cfg := defaultConfig()
	configPath := flag.String("config", "", "YAML run configuration file")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "in-process worker count")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random catalog seed")
	flag.IntVar(&cfg.NParticles, "nparticles", cfg.NParticles, "number of data particles")
	flag.IntVar(&cfg.Randoms, "randoms", cfg.Randoms, "number of randoms particles (0: none)")
	flag.Float64Var(&cfg.BoxSize, "boxsize", cfg.BoxSize, "periodic box side length")
	flag.IntVar(&cfg.Nmesh, "nmesh", cfg.Nmesh, "mesh cells per side")
	flag.StringVar(&cfg.Resampler, "resampler", cfg.Resampler, "assignment kernel: ngp, cic, tsc or pcs")
	flag.IntVar(&cfg.Interlacing, "interlacing", cfg.Interlacing, "interlacing factor 1..4")
	flag.StringVar(&cfg.Ells, "ells", cfg.Ells, "comma-separated multipole orders; empty selects wedges")
	flag.IntVar(&cfg.MuBins, "mubins", cfg.MuBins, "mu wedge count when -ells is empty (0: single wedge)")
	flag.StringVar(&cfg.LOS, "los", cfg.LOS, "line of sight: x, y, z, firstpoint or endpoint")
	flag.BoolVar(&cfg.KUnique, "kunique", cfg.KUnique, "one k bin per distinct lattice |k|")
	flag.Float64Var(&cfg.KMin, "kmin", cfg.KMin, "lowest k edge")
	flag.Float64Var(&cfg.KMax, "kmax", cfg.KMax, "highest k edge (0: lattice maximum)")
	flag.Float64Var(&cfg.KStep, "kstep", cfg.KStep, "k bin width (0: fundamental frequency)")
	flag.StringVar(&cfg.Out, "out", cfg.Out, "archive output path (empty: report only)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pkestimate [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Measures the power spectrum of a uniform random catalog in a\n")
		fmt.Fprintf(os.Stderr, "periodic box and prints a per-bin report.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pkestimate -nparticles 100000 -nmesh 128 -out pk.zst\n")
		fmt.Fprintf(os.Stderr, "  pkestimate -config run.yaml\n")
	}
	flag.Parse()

	if *configPath != "" {
		fileCfg := defaultConfig()
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
			os.Exit(1)
		}
		// Explicit flags win over file values.
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		merged := fileCfg
		if set["workers"] {
			merged.Workers = cfg.Workers
		}
		if set["seed"] {
			merged.Seed = cfg.Seed
		}
		if set["nparticles"] {
			merged.NParticles = cfg.NParticles
		}
		if set["randoms"] {
			merged.Randoms = cfg.Randoms
		}
		if set["boxsize"] {
			merged.BoxSize = cfg.BoxSize
		}
		if set["nmesh"] {
			merged.Nmesh = cfg.Nmesh
		}
		if set["resampler"] {
			merged.Resampler = cfg.Resampler
		}
		if set["interlacing"] {
			merged.Interlacing = cfg.Interlacing
		}
		if set["ells"] {
			merged.Ells = cfg.Ells
		}
		if set["mubins"] {
			merged.MuBins = cfg.MuBins
		}
		if set["los"] {
			merged.LOS = cfg.LOS
		}
		if set["kunique"] {
			merged.KUnique = cfg.KUnique
		}
		if set["kmin"] {
			merged.KMin = cfg.KMin
		}
		if set["kmax"] {
			merged.KMax = cfg.KMax
		}
		if set["kstep"] {
			merged.KStep = cfg.KStep
		}
		if set["out"] {
			merged.Out = cfg.Out
		}
		cfg = merged
	}

	spec, err := run(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := report(os.Stdout, spec); err != nil {
		fmt.Fprintf(os.Stderr, "error: write report: %v\n", err)
		os.Exit(1)
	}
	if cfg.Out != "" {
		if err := power.SaveFile(cfg.Out, spec); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", cfg.Out)
	}
}

func parseElls(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		ell, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid multipole order %q", part)
		}
		out = append(out, ell)
	}
	return out, nil
}

func run(cfg runConfig) (*power.Spectrum, error) {
	r, err := mesh.ParseResampler(cfg.Resampler)
	if err != nil {
		return nil, err
	}
	ells, err := parseElls(cfg.Ells)
	if err != nil {
		return nil, err
	}
	los, err := power.ParseLOS(cfg.LOS)
	if err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("worker count %d", cfg.Workers)
	}

	pcfg := power.CatalogPowerConfig{
		Mesh: power.CatalogMeshConfig{
			BoxSize:     [3]float64{cfg.BoxSize, cfg.BoxSize, cfg.BoxSize},
			Nmesh:       [3]int{cfg.Nmesh, cfg.Nmesh, cfg.Nmesh},
			Resampler:   r,
			Interlacing: cfg.Interlacing,
		},
		KEdges:       power.Range(cfg.KMin, cfg.KMax, cfg.KStep),
		UniqueKEdges: cfg.KUnique,
		Ells:         ells,
		LOS:          los,
	}
	if len(ells) == 0 && cfg.MuBins > 0 {
		pcfg.MuEdges = power.Range(-1, 1, 2/float64(cfg.MuBins))
	}

	var spec *power.Spectrum
	err = comm.Run(cfg.Workers, func(c *comm.Comm) error {
		// Each rank samples its own disjoint slice of the catalog.
		n := chunk(cfg.NParticles, c.Size(), c.Rank())
		data := &power.CatalogData{
			Positions: catalog.RandomBox(cfg.Seed+int64(c.Rank()), n,
				[3]float64{cfg.BoxSize, cfg.BoxSize, cfg.BoxSize}, [3]float64{}),
		}
		var randoms *power.CatalogData
		if cfg.Randoms > 0 {
			nr := chunk(cfg.Randoms, c.Size(), c.Rank())
			randoms = &power.CatalogData{
				Positions: catalog.RandomBox(cfg.Seed+1000+int64(c.Rank()), nr,
					[3]float64{cfg.BoxSize, cfg.BoxSize, cfg.BoxSize}, [3]float64{}),
			}
		}
		s, err := power.CatalogFFTPower(c, data, randoms, nil, nil, pcfg)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			spec = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func chunk(n, size, rank int) int {
	base, rem := n/size, n%size
	if rank < rem {
		return base + 1
	}
	return base
}

func report(w *os.File, s *power.Spectrum) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "# shot noise %.6g, wnorm %.6g\n", s.ShotNoise, s.Wnorm)

	if s.Kind == power.Multipole {
		fmt.Fprintf(tw, "k\tnmodes")
		for _, ell := range s.Ells {
			fmt.Fprintf(tw, "\tP%d(k)", ell)
		}
		fmt.Fprintf(tw, "\n")
		for ik := 0; ik < s.NumK(); ik++ {
			fmt.Fprintf(tw, "%.6g\t%d", s.K[ik], s.Nmodes[ik])
			for je := range s.Ells {
				fmt.Fprintf(tw, "\t%.6g", real(s.Value[je*s.NumK()+ik]))
			}
			fmt.Fprintf(tw, "\n")
		}
		return tw.Flush()
	}

	fmt.Fprintf(tw, "k\tmu\tnmodes\tP(k,mu)\n")
	nmu := s.NumMu()
	for ik := 0; ik < s.NumK(); ik++ {
		for im := 0; im < nmu; im++ {
			j := ik*nmu + im
			fmt.Fprintf(tw, "%.6g\t%.4f\t%d\t%.6g\n", s.K[j], s.Mu[j], s.Nmodes[j], real(s.Value[j]))
		}
	}
	return tw.Flush()
}
