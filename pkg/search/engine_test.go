package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/filter"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
)

// spectrum builds Gaussian peaks on a 100-1800 cm⁻¹ axis.
func spectrum(centers, heights []float64) core.Spectrum {
	const n = 851
	s := core.Spectrum{
		Wavenumbers: make([]float64, n),
		Intensities: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x := 100 + 2*float64(i)
		s.Wavenumbers[i] = x
		s.Intensities[i] = 1
		for k, c := range centers {
			d := (x - c) / 8
			s.Intensities[i] += heights[k] * math.Exp(-0.5*d*d)
		}
	}
	return s
}

func rec(name string, s core.Spectrum, md map[string]string) *core.Record {
	return &core.Record{
		Name:        name,
		Wavenumbers: s.Wavenumbers,
		Intensities: s.Intensities,
		Metadata:    core.NormalizeMetadata(md),
	}
}

func calciteLike() core.Spectrum {
	return spectrum([]float64{156, 282, 712, 1086}, []float64{30, 45, 15, 100})
}

func library() []*core.Record {
	return []*core.Record{
		rec("Quartz", spectrum([]float64{128, 206, 464}, []float64{20, 25, 100}),
			map[string]string{"CHEMICAL FAMILY": "Silicate", "CHEMISTRY ELEMENTS": "Si, O"}),
		rec("Calcite", calciteLike(),
			map[string]string{"CHEMICAL FAMILY": "Carbonate", "CHEMISTRY ELEMENTS": "Ca, C, O"}),
		rec("Aragonite", spectrum([]float64{152, 206, 705, 1085}, []float64{35, 30, 10, 100}),
			map[string]string{"CHEMICAL FAMILY": "Carbonate", "FORMULA": "CaCO3"}),
		rec("Gypsum", spectrum([]float64{414, 494, 1008, 1136}, []float64{20, 15, 100, 10}),
			map[string]string{"CHEMICAL FAMILY": "Sulfate", "FORMULA": "CaSO4·2H2O"}),
		rec("Anatase", spectrum([]float64{144, 399, 516, 639}, []float64{100, 20, 20, 30}),
			map[string]string{"CHEMICAL FAMILY": "Oxide", "FORMULA": "TiO2"}),
	}
}

func filters(algo score.Algorithm, maxResults int) Filters {
	f := DefaultFilters()
	f.Algorithm = algo
	f.MaxResults = maxResults
	return f
}

func TestSearchRanksIdenticalFirst(t *testing.T) {
	engine := NewEngine()
	query := score.Query{Spectrum: calciteLike()}

	for _, algo := range score.Algorithms {
		t.Run(string(algo), func(t *testing.T) {
			results, err := engine.Search(context.Background(), query, library(), filters(algo, 3), nil)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "Calcite", results[0].Name)
			assert.GreaterOrEqual(t, results[0].Score, 0.99)
			assert.LessOrEqual(t, len(results), 3)
		})
	}
}

func TestSearchAcceptsAlgorithmSpellings(t *testing.T) {
	metrics := NewMetrics(nil)
	engine := NewEngine(WithMetrics(metrics))
	query := score.Query{Spectrum: calciteLike()}

	for _, name := range []string{"DTW", "Combined", "Multi-Window", "Correlation", "mineral_vibration", "Peaks"} {
		t.Run(name, func(t *testing.T) {
			results, err := engine.Search(context.Background(), query, library(), filters(score.Algorithm(name), 3), nil)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "Calcite", results[0].Name)
			assert.GreaterOrEqual(t, results[0].Score, 0.99)
		})
	}
	// Metrics are labelled with the canonical name
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Searches.WithLabelValues("dtw", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Searches.WithLabelValues("multi-window", "ok")))
}

func TestSearchEarlyTerminationWithMixedCaseAlgorithm(t *testing.T) {
	var last Progress
	results, err := NewEngine().Search(context.Background(), score.Query{Spectrum: calciteLike()}, manyRecords(100),
		filters(score.Algorithm("DTW"), 2), func(p Progress) { last = p })
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.True(t, last.EarlyStopped)
	assert.Equal(t, 30, last.Processed)
}

func TestSearchRespectsThresholdAndOrder(t *testing.T) {
	f := filters(score.AlgorithmCorrelation, 10)
	f.Threshold = 0.3

	results, err := NewEngine().Search(context.Background(), score.Query{Spectrum: calciteLike()}, library(), f, nil)
	require.NoError(t, err)
	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, f.Threshold)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score, "results not sorted at %d", i)
		}
	}
}

func TestSearchEmptyDatabase(t *testing.T) {
	results, err := NewEngine().SearchLibrary(context.Background(),
		score.Query{Spectrum: calciteLike()}, core.NewMemoryLibrary(), DefaultFilters(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchRejectsBadInput(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	_, err := engine.Search(ctx, score.Query{}, library(), DefaultFilters(), nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)

	bad := core.Spectrum{Wavenumbers: []float64{1, 2}, Intensities: []float64{1}}
	_, err = engine.Search(ctx, score.Query{Spectrum: bad}, library(), DefaultFilters(), nil)
	var dataErr *core.DataError
	assert.ErrorAs(t, err, &dataErr)

	tests := []struct {
		name   string
		mutate func(*Filters)
	}{
		{"zero results", func(f *Filters) { f.MaxResults = 0 }},
		{"threshold above one", func(f *Filters) { f.Threshold = 1.5 }},
		{"negative tolerance", func(f *Filters) { f.PeakTolerance = -1 }},
		{"unknown algorithm", func(f *Filters) { f.Algorithm = "cosine" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilters()
			tt.mutate(&f)
			_, err := engine.Search(ctx, score.Query{Spectrum: calciteLike()}, library(), f, nil)
			var cfgErr *core.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestSearchMetadataFilter(t *testing.T) {
	f := filters(score.AlgorithmCorrelation, 10)
	f.Metadata = &filter.Config{ChemicalFamily: "carbonate", ExcludedElements: []string{"Mg"}}

	results, err := NewEngine().Search(context.Background(), score.Query{Spectrum: calciteLike()}, library(), f, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Calcite", results[0].Name)
	assert.Equal(t, "Aragonite", results[1].Name)
	assert.Equal(t, "Carbonate", results[0].Metadata.Get(core.KeyChemicalFamily))
}

func TestSearchIsolatesMalformedRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := NewEngine(WithMetrics(metrics))

	broken := rec("Broken", calciteLike(), nil)
	broken.Intensities = append([]float64(nil), broken.Intensities...)
	broken.Intensities[10] = math.NaN()
	empty := &core.Record{Name: "Empty"}

	var last Progress
	progress := func(p Progress) { last = p }

	candidates := append([]*core.Record{broken, empty, nil}, library()...)
	results, err := engine.Search(context.Background(), score.Query{Spectrum: calciteLike()}, candidates,
		filters(score.AlgorithmCorrelation, 10), progress)
	require.NoError(t, err)
	assert.Len(t, results, 5)

	// Empty and nil records are dropped before the scan
	assert.True(t, last.Done)
	assert.Equal(t, 6, last.Total)
	assert.Equal(t, 6, last.Processed)
	for _, r := range results {
		assert.NotEqual(t, "Broken", r.Name)
	}

	algo := string(score.AlgorithmCorrelation)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CandidateErrors.WithLabelValues(algo)))
	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.CandidatesScored.WithLabelValues(algo)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Searches.WithLabelValues(algo, "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Duration))
}

func manyRecords(n int) []*core.Record {
	records := make([]*core.Record, n)
	for i := range records {
		shift := float64(i % 7)
		records[i] = rec(fmt.Sprintf("R%03d", i),
			spectrum([]float64{156 + shift, 282, 712, 1086 - shift}, []float64{30, 45, 15, 100}), nil)
	}
	return records
}

func TestSearchEarlyTermination(t *testing.T) {
	metrics := NewMetrics(nil)
	engine := NewEngine(WithMetrics(metrics))
	query := score.Query{Spectrum: calciteLike()}

	var last Progress
	progress := func(p Progress) { last = p }

	results, err := engine.Search(context.Background(), query, manyRecords(100),
		filters(score.AlgorithmCombined, 2), progress)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.True(t, last.Done)
	assert.True(t, last.EarlyStopped)
	assert.Equal(t, 30, last.Processed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EarlyTerminations.WithLabelValues("combined")))

	f := filters(score.AlgorithmCombined, 2)
	f.Exhaustive = true
	_, err = engine.Search(context.Background(), query, manyRecords(100), f, progress)
	require.NoError(t, err)
	assert.False(t, last.EarlyStopped)
	assert.Equal(t, 100, last.Processed)

	// Cheap algorithms always scan everything
	_, err = engine.Search(context.Background(), query, manyRecords(100), filters(score.AlgorithmCorrelation, 2), progress)
	require.NoError(t, err)
	assert.Equal(t, 100, last.Processed)
}

func TestSearchProgressEveryTenPercent(t *testing.T) {
	var updates []Progress
	_, err := NewEngine().Search(context.Background(), score.Query{Spectrum: calciteLike()}, manyRecords(50),
		filters(score.AlgorithmCorrelation, 5), func(p Progress) { updates = append(updates, p) })
	require.NoError(t, err)

	require.Len(t, updates, 10)
	for i, p := range updates[:9] {
		assert.Equal(t, 5*(i+1), p.Processed)
		assert.False(t, p.Done)
	}
	final := updates[9]
	assert.True(t, final.Done)
	assert.Equal(t, 50, final.Processed)
	assert.Equal(t, 50, final.Total)
}

func TestSearchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := NewEngine(WithProgressInterval(0.05))
	progress := func(p Progress) {
		if p.Processed == 5 {
			cancel()
		}
	}
	results, err := engine.Search(ctx, score.Query{Spectrum: calciteLike()}, manyRecords(20),
		filters(score.AlgorithmCorrelation, 10), progress)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchStableTies(t *testing.T) {
	s := calciteLike()
	candidates := []*core.Record{rec("first", s, nil), rec("second", s, nil), rec("third", s, nil)}

	results, err := NewEngine().Search(context.Background(), score.Query{Spectrum: s}, candidates,
		filters(score.AlgorithmCorrelation, 2), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Name)
	assert.Equal(t, "second", results[1].Name)
}

func TestSearchCallerPeaks(t *testing.T) {
	f := filters(score.AlgorithmPeak, 5)
	f.PeakPositions = []float64{1086, 712, 282}
	f.PeakTolerance = 5

	results, err := NewEngine().Search(context.Background(), score.Query{Spectrum: calciteLike()}, library(), f, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Calcite", results[0].Name)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchWithoutDTW(t *testing.T) {
	engine := NewEngine(WithoutDTW())
	query := score.Query{Spectrum: calciteLike()}

	dtw, err := engine.Search(context.Background(), query, library(), filters(score.AlgorithmDTW, 5), nil)
	require.NoError(t, err)
	corr, err := engine.Search(context.Background(), query, library(), filters(score.AlgorithmCorrelation, 5), nil)
	require.NoError(t, err)

	require.Equal(t, len(corr), len(dtw))
	for i := range corr {
		assert.Equal(t, corr[i].Name, dtw[i].Name)
		assert.InDelta(t, corr[i].Score, dtw[i].Score, 1e-12)
	}
}

func TestChannelProgressNeverBlocks(t *testing.T) {
	ch := make(chan Progress, 1)
	fn := ChannelProgress(ch)
	fn(Progress{Processed: 1})
	fn(Progress{Processed: 2})

	got := <-ch
	assert.Equal(t, 1, got.Processed)
	assert.Empty(t, ch)
}
