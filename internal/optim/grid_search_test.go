package optim

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/secantlab/internal/secant"
)

func quadraticRunner(ctx context.Context, cell Cell, rng secant.Rand) (*secant.RunResult, error) {
	f := func(z complex128) complex128 { return z*z - 4 }
	return secant.Run(ctx, cell.Seed0, cell.Seed1, secant.DefaultConfig(), f,
		secant.WithID(cell.ID),
		secant.WithRand(rng),
		secant.WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func gridConfig(n int, parallel bool) GridConfig {
	cfg := DefaultGridConfig()
	cfg.Points = n
	cfg.Parallel = parallel
	cfg.Seed = 42
	return cfg
}

func totalHits(roots []secant.RootRecord) int {
	n := 0
	for _, r := range roots {
		n += r.Hits
	}
	return n
}

var _ = Describe("GridSearch", func() {
	logger := slog.New(slog.DiscardHandler)

	Describe("Cells", func() {
		It("lays out an n×n lattice with offset second seeds", func() {
			cfg := gridConfig(3, false)
			cfg.Region = Region{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
			cells := NewGridSearch(cfg, quadraticRunner, logger).Cells()

			Expect(cells).To(HaveLen(9))
			c := cells[1*3+2]
			Expect(c.ID).To(Equal("grid_1_2"))
			Expect(c.Seed0).To(Equal(secant.Point{Real: 0.5, Imag: 1}))
			Expect(c.Seed1.Real).To(BeNumerically("~", 0.52, 1e-12))
			Expect(c.Seed1.Imag).To(BeNumerically("~", 1.02, 1e-12))
		})

		It("places a single point at the lower corner", func() {
			cfg := gridConfig(1, false)
			cells := NewGridSearch(cfg, quadraticRunner, logger).Cells()
			Expect(cells).To(HaveLen(1))
			Expect(cells[0].Seed0).To(Equal(secant.Point{Real: -2, Imag: -2}))
		})
	})

	Describe("Search", func() {
		It("finds both roots of z^2-4 in parallel", func(ctx SpecContext) {
			res, err := NewGridSearch(gridConfig(10, true), quadraticRunner, logger).Search(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Processed).To(Equal(100))
			Expect(res.Converged).To(BeNumerically(">", 0))
			Expect(totalHits(res.Roots)).To(Equal(res.Converged))
			Expect(res.Roots).To(ContainElement(WithTransform(
				func(r secant.RootRecord) float64 { return r.Root.Dist(secant.Point{Real: 2}) },
				BeNumerically("<", 1e-6),
			)))
			for _, r := range res.Roots {
				Expect(r.Hits).To(BeNumerically(">=", 1))
			}
		})

		It("matches the sequential dispatch", func(ctx SpecContext) {
			par, err := NewGridSearch(gridConfig(10, true), quadraticRunner, logger).Search(ctx)
			Expect(err).NotTo(HaveOccurred())
			seq, err := NewGridSearch(gridConfig(10, false), quadraticRunner, logger).Search(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(seq.Processed).To(Equal(par.Processed))
			Expect(seq.Converged).To(Equal(par.Converged))
			Expect(seq.Roots).To(HaveLen(len(par.Roots)))
		})

		It("keeps unique roots apart by the dedup distance", func(ctx SpecContext) {
			res, err := NewGridSearch(gridConfig(6, true), quadraticRunner, logger).Search(ctx)
			Expect(err).NotTo(HaveOccurred())
			for i := range res.Roots {
				for j := i + 1; j < len(res.Roots); j++ {
					Expect(res.Roots[i].Root.Dist(res.Roots[j].Root)).To(BeNumerically(">=", DefaultDedupDistance))
				}
			}
		})

		It("counts failed cells as processed", func(ctx SpecContext) {
			failing := func(ctx context.Context, cell Cell, rng secant.Rand) (*secant.RunResult, error) {
				if cell.I == cell.J {
					return nil, errors.New("boom")
				}
				return quadraticRunner(ctx, cell, rng)
			}
			res, err := NewGridSearch(gridConfig(5, true), failing, logger).Search(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Processed).To(Equal(25))
			Expect(res.Converged).To(BeNumerically("<=", 20))
		})

		It("rejects invalid configuration before running", func(ctx SpecContext) {
			calls := 0
			counting := func(ctx context.Context, cell Cell, rng secant.Rand) (*secant.RunResult, error) {
				calls++
				return quadraticRunner(ctx, cell, rng)
			}

			bad := gridConfig(0, false)
			_, err := NewGridSearch(bad, counting, logger).Search(ctx)
			Expect(err).To(MatchError(ErrInvalidRegion))

			bad = gridConfig(4, false)
			bad.Region.XMin = 5
			_, err = NewGridSearch(bad, counting, logger).Search(ctx)
			Expect(err).To(MatchError(ErrInvalidRegion))

			bad = gridConfig(MaxGridPoints+1, false)
			_, err = NewGridSearch(bad, counting, logger).Search(ctx)
			Expect(err).To(MatchError(ErrInvalidRegion))

			bad = gridConfig(MaxGridPoints*MaxGridPoints, false)
			_, err = NewGridSearch(bad, counting, logger).Search(ctx)
			Expect(err).To(MatchError(ErrInvalidRegion))

			bad = gridConfig(4, false)
			bad.DedupDistance = 0
			_, err = NewGridSearch(bad, counting, logger).Search(ctx)
			Expect(err).To(MatchError(ErrInvalidRegion))

			Expect(calls).To(BeZero())
		})

		It("stops on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := NewGridSearch(gridConfig(10, false), quadraticRunner, logger).Search(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Processed).To(BeZero())
		})
	})
})
