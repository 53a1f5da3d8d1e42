// Package signal computes raw statistical measurements over a dataset.
// Extraction is a pure function: no side effects, deterministic, and total
// over any dataset including degenerate ones (zero rows, all-constant
// columns). Every ratio is 0 when its denominator is 0.
package signal

import (
	"math"
	"strconv"
	"strings"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/stats"
)

// correlationSampleRows caps the rows scanned by the pairwise correlation
// pass. Sampling is by stride so extraction stays deterministic.
const correlationSampleRows = 10000

// Bundle is the read-only output of one extraction pass.
type Bundle struct {
	Metadata   Metadata
	Health     Health
	Complexity Complexity
	Target     TargetProfile
}

// Metadata describes dataset shape and composition.
type Metadata struct {
	Rows              int
	Columns           int
	NumericRatio      float64
	CategoricalRatio  float64
	FeatureToRowRatio float64
	MemoryMB          float64
}

// Health holds missingness, duplication, and constancy measurements.
type Health struct {
	MissingRatio      float64
	PerColumnMissing  map[string]float64
	DuplicatedRatio   float64
	ConstantRatios    map[string]float64
	MeanConstantRatio float64
	MaxConstantRatio  float64
}

// Complexity holds the structural complexity measurements.
type Complexity struct {
	Multicollinearity float64
	Cardinality       float64
	Outliers          float64
	MixedType         float64
}

// TargetProfile describes the designated target column, when one exists.
type TargetProfile struct {
	Present       bool
	Column        string
	Concentration float64
}

// Extract measures the dataset and returns its signal bundle. When target
// names an existing column it is profiled separately; it is never excluded
// from the dataset-level measurements, which always cover the full dataset.
func Extract(ds *dataset.Dataset, target string) Bundle {
	return Bundle{
		Metadata:   extractMetadata(ds),
		Health:     extractHealth(ds),
		Complexity: extractComplexity(ds),
		Target:     extractTarget(ds, target),
	}
}

func extractMetadata(ds *dataset.Dataset) Metadata {
	rows, cols := ds.Rows(), ds.Cols()

	numeric, categorical := 0, 0
	for _, c := range ds.Columns() {
		switch c.Domain() {
		case dataset.DomainNumeric:
			numeric++
		case dataset.DomainCategorical:
			categorical++
		}
	}

	m := Metadata{Rows: rows, Columns: cols}
	if cols > 0 {
		m.NumericRatio = round4(float64(numeric) / float64(cols))
		m.CategoricalRatio = round4(float64(categorical) / float64(cols))
	}
	if rows > 0 {
		m.FeatureToRowRatio = round4(float64(cols) / float64(rows))
	}
	m.MemoryMB = round4(float64(ds.MemoryBytes()) / (1024 * 1024))
	return m
}

func extractHealth(ds *dataset.Dataset) Health {
	rows, cols := ds.Rows(), ds.Cols()
	h := Health{
		PerColumnMissing: make(map[string]float64, cols),
		ConstantRatios:   make(map[string]float64, cols),
	}

	totalMissing := 0.0
	constSum, constN := 0.0, 0
	for _, c := range ds.Columns() {
		mr := c.MissingRatio()
		h.PerColumnMissing[c.Name] = round4(mr)
		totalMissing += mr * float64(rows)

		cr := dominantRatio(c)
		if cr >= 0 {
			h.ConstantRatios[c.Name] = round4(cr)
			constSum += cr
			constN++
			if cr > h.MaxConstantRatio {
				h.MaxConstantRatio = round4(cr)
			}
		}
	}

	if rows > 0 && cols > 0 {
		h.MissingRatio = round4(totalMissing / float64(rows*cols))
	}
	if constN > 0 {
		h.MeanConstantRatio = round4(constSum / float64(constN))
	}
	h.DuplicatedRatio = round4(ds.DuplicateRowRatio())
	return h
}

// dominantRatio returns the share of the most frequent non-null value, or -1
// for a fully-null column.
func dominantRatio(c *dataset.Column) float64 {
	counts := c.ValueCounts()
	total, max := 0, 0
	for _, n := range counts {
		total += n
		if n > max {
			max = n
		}
	}
	if total == 0 {
		return -1
	}
	return float64(max) / float64(total)
}

func extractComplexity(ds *dataset.Dataset) Complexity {
	return Complexity{
		Multicollinearity: round4(multicollinearityDensity(ds, 0.8)),
		Cardinality:       round4(cardinalityRatio(ds)),
		Outliers:          round4(outlierRowRatio(ds)),
		MixedType:         round4(mixedTypeRatio(ds)),
	}
}

// multicollinearityDensity is the fraction of unique non-constant numeric
// column pairs whose absolute Pearson correlation exceeds the threshold.
func multicollinearityDensity(ds *dataset.Dataset, threshold float64) float64 {
	var cols []*dataset.Column
	for _, c := range ds.NumericColumns() {
		if c.UniqueCount() > 1 {
			cols = append(cols, c)
		}
	}
	if len(cols) < 2 {
		return 0
	}

	stride := 1
	if ds.Rows() > correlationSampleRows {
		stride = ds.Rows() / correlationSampleRows
	}

	pairs, high := 0, 0
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			pairs++
			a, b := PairedFloats(cols[i], cols[j], stride)
			if len(a) < 2 {
				continue
			}
			if math.Abs(stats.Correlation(a, b)) > threshold {
				high++
			}
		}
	}
	return float64(high) / float64(pairs)
}

// PairedFloats returns the aligned numeric values of rows where both columns
// hold a coercible non-null value, visiting every stride-th row.
func PairedFloats(x, y *dataset.Column, stride int) (a, b []float64) {
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < x.Len(); i += stride {
		if x.IsNull(i) || y.IsNull(i) {
			continue
		}
		xv, okX := parseFloat(x.Value(i))
		yv, okY := parseFloat(y.Value(i))
		if okX && okY {
			a = append(a, xv)
			b = append(b, yv)
		}
	}
	return a, b
}

// cardinalityRatio averages unique-value-to-row ratios across the valid
// categorical columns.
func cardinalityRatio(ds *dataset.Dataset) float64 {
	rows := ds.Rows()
	if rows == 0 {
		return 0
	}
	cats := ds.CategoricalColumns()
	if len(cats) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cats {
		sum += float64(c.UniqueCount()) / float64(rows)
	}
	return sum / float64(len(cats))
}

// outlierRowRatio is the fraction of rows with at least one numeric field
// outside its column's Tukey fences [Q1-1.5·IQR, Q3+1.5·IQR].
func outlierRowRatio(ds *dataset.Dataset) float64 {
	rows := ds.Rows()
	if rows == 0 {
		return 0
	}

	type fence struct {
		col    *dataset.Column
		lo, hi float64
	}
	var fences []fence
	for _, c := range ds.NumericColumns() {
		if c.UniqueCount() < 2 {
			continue
		}
		vals := c.Floats()
		if len(vals) == 0 {
			continue
		}
		q1 := stats.Quantile(vals, 0.25)
		q3 := stats.Quantile(vals, 0.75)
		iqr := q3 - q1
		fences = append(fences, fence{col: c, lo: q1 - 1.5*iqr, hi: q3 + 1.5*iqr})
	}
	if len(fences) == 0 {
		return 0
	}

	flagged := 0
	for i := 0; i < rows; i++ {
		for _, f := range fences {
			if f.col.IsNull(i) {
				continue
			}
			v, ok := parseFloat(f.col.Value(i))
			if !ok {
				continue
			}
			if v < f.lo || v > f.hi {
				flagged++
				break
			}
		}
	}
	return float64(flagged) / float64(rows)
}

// mixedTypeRatio is the fraction of all columns tagged mixed (partially but
// not fully numeric-coercible).
func mixedTypeRatio(ds *dataset.Dataset) float64 {
	if ds.Cols() == 0 {
		return 0
	}
	mixed := 0
	for _, c := range ds.Columns() {
		if c.Domain() == dataset.DomainMixed {
			mixed++
		}
	}
	return float64(mixed) / float64(ds.Cols())
}

func extractTarget(ds *dataset.Dataset, target string) TargetProfile {
	if target == "" {
		return TargetProfile{}
	}
	col := ds.Column(target)
	if col == nil {
		return TargetProfile{}
	}
	r := dominantRatio(col)
	if r < 0 {
		r = 0
	}
	return TargetProfile{Present: true, Column: target, Concentration: round4(r)}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
