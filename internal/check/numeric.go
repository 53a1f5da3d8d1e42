package check

import (
	"math"
	"sort"
	"strconv"

	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/stats"
)

// minGeometryRows is the smallest sample the shape diagnostics will judge.
const minGeometryRows = 10

// numericOutlierGeometryCheck describes the geometric structure of extremes:
// bimodality, gap isolation ("island index"), quantile staircase, and hollow
// centers. Structural shifts outrank tail geometry.
func numericOutlierGeometryCheck() Check {
	return Check{
		ID:   "numeric_outlier_geometry",
		Name: "Outlier Geometry",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				uniq := stats.SortedUnique(data)
				if len(data) < minGeometryRows || len(uniq) < 5 {
					continue
				}
				n := float64(len(data))

				s := stats.Skewness(data)
				k := stats.Kurtosis(data)
				kAdj := 3 * math.Pow(n-1, 2) / ((n - 2) * (n - 3))
				bc := (s*s + 1) / (k + kAdj)

				gaps := diffs(uniq)
				maxGap, medGap := maxOf(gaps), medianOf(gaps)
				islandIndex := 0.0
				if medGap > 0 {
					islandIndex = maxGap / medGap
				}

				q1 := stats.Quantile(data, 0.25)
				q3 := stats.Quantile(data, 0.75)
				iqr := q3 - q1
				staircase := 0.0
				if iqr > 0 {
					staircase = (stats.Quantile(data, 0.6) - stats.Quantile(data, 0.4)) / iqr
				}

				upperFence := q3 + 3*iqr
				extreme := 0
				for _, v := range data {
					if v > upperFence {
						extreme++
					}
				}
				extremeDensity := float64(extreme) / n

				hollow := hollowCenter(data)

				profile := "standard_unimodal"
				status := schema.StatusSafe
				switch {
				case bc > ctx.Cfg.BimodalityCoefficient || hollow || staircase > 2.0:
					profile = "structural_shift"
					status = schema.StatusDanger
				case islandIndex > ctx.Cfg.IslandIndex && extremeDensity < 0.01:
					profile = "isolated_glitch"
					status = schema.StatusWarning
				case islandIndex > ctx.Cfg.IslandIndex:
					profile = "continuous_tail"
					status = schema.StatusWarning
				}
				if status == schema.StatusSafe {
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "numeric_outlier_geometry:" + col.Name,
					Title:    "Extremes share one continuous regime",
					Metric:   round4(bc),
					Status:   status,
					RiskCode: "OUTLIER_GEOMETRY",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"profile":                profile,
						"bimodality_coefficient": round4(bc),
						"island_index":           round4(islandIndex),
						"staircase_ratio":        round4(staircase),
						"hollow_center":          hollow,
						"extreme_density":        round4(extremeDensity),
					},
				})
			}
			return findings, nil
		},
	}
}

// hollowCenter reports whether the density around the mean is under a fifth
// of the density around the histogram mode.
func hollowCenter(data []float64) bool {
	counts, centers := stats.Histogram(data, 20)
	if len(counts) == 0 {
		return false
	}
	modeIdx := 0
	for i, c := range counts {
		if c > counts[modeIdx] {
			modeIdx = i
		}
	}
	mode := centers[modeIdx]
	mean := stats.Mean(data)
	meanDensity := bandCount(data, mean)
	modeDensity := bandCount(data, mode)
	return float64(meanDensity) < float64(modeDensity)*0.2
}

// bandCount counts values within ±5% of center.
func bandCount(data []float64, center float64) int {
	lo, hi := center*0.95, center*1.05
	if lo > hi {
		lo, hi = hi, lo
	}
	n := 0
	for _, v := range data {
		if v >= lo && v <= hi {
			n++
		}
	}
	return n
}

// numericRedundancyCheck detects numeric columns behaving like coded
// categories (uniform integer ladders with low cardinality) and sequential
// self-redundancy via lag-1 autocorrelation.
func numericRedundancyCheck() Check {
	return Check{
		ID:   "numeric_redundancy",
		Name: "Numeric Redundancy",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				if len(data) < minGeometryRows {
					continue
				}
				uniq := stats.SortedUnique(data)
				cardinality := float64(len(uniq)) / float64(len(data))

				uniformGap := len(uniq) > 2 && uniformDiffs(diffs(uniq))
				integerLike := allIntegerLike(uniq)
				logicalOverlap := uniformGap && integerLike && cardinality < 0.05

				autocorr := stats.AutocorrLag1(data)
				sequential := autocorr > 0.99

				if !logicalOverlap && !sequential {
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "numeric_redundancy:" + col.Name,
					Title:    "Values carry independent numeric signal",
					Metric:   round4(autocorr),
					Status:   schema.StatusWarning,
					RiskCode: "NUMERIC_REDUNDANCY",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"cardinality_ratio":    round4(cardinality),
						"uniform_gap":          uniformGap,
						"integer_like":         integerLike,
						"lag1_autocorrelation": round4(autocorr),
					},
				})
			}
			return findings, nil
		},
	}
}

// numericScaleRegimesCheck detects multi-regime scales (separated histogram
// density peaks) and repeated integer extremes far outside the bulk.
func numericScaleRegimesCheck() Check {
	return Check{
		ID:   "numeric_scale_regimes",
		Name: "Scale Regimes",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				if len(data) < 20 {
					continue
				}

				q1 := stats.Quantile(data, 0.25)
				q3 := stats.Quantile(data, 0.75)
				iqr := q3 - q1

				repeatedExtremes := 0
				counts := make(map[float64]int, len(data))
				for _, v := range data {
					counts[v]++
				}
				for v, n := range counts {
					if n > 1 && math.Abs(v) > q3+5*iqr && v == math.Trunc(v) {
						repeatedExtremes++
					}
				}

				separation := peakSeparation(data)

				hasRegimes := separation > ctx.Cfg.ScaleSeparation
				if repeatedExtremes == 0 && !hasRegimes {
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "numeric_scale_regimes:" + col.Name,
					Title:    "Values occupy a single numeric regime",
					Metric:   round4(separation),
					Status:   schema.StatusWarning,
					RiskCode: "SCALE_REGIMES",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"repeated_extreme_values": float64(repeatedExtremes),
						"scale_separation_ratio":  round4(separation),
					},
				})
			}
			return findings, nil
		},
	}
}

// peakSeparation finds histogram density peaks above the mean density and
// returns the ratio of the outermost peak centers. 0 when fewer than two
// peaks exist or the lowest peak sits at zero.
func peakSeparation(data []float64) float64 {
	counts, centers := stats.Histogram(data, 20)
	if len(counts) == 0 {
		return 0
	}
	meanCount := 0.0
	for _, c := range counts {
		meanCount += float64(c)
	}
	meanCount /= float64(len(counts))

	var peaks []float64
	for i := 1; i < len(counts)-1; i++ {
		if counts[i] > counts[i-1] && counts[i] >= counts[i+1] && float64(counts[i]) > meanCount {
			peaks = append(peaks, centers[i])
		}
	}
	if len(peaks) < 2 || peaks[0] == 0 {
		return 0
	}
	return peaks[len(peaks)-1] / peaks[0]
}

// numericPlaceholderCheck scores extremal or dominant values as sentinel
// placeholders using gap isolation, digit entropy, and roundness.
func numericPlaceholderCheck() Check {
	return Check{
		ID:   "numeric_placeholder",
		Name: "Sentinel Placeholders",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				uniq := stats.SortedUnique(data)
				if len(uniq) < 3 {
					continue
				}

				candidates := map[float64]bool{uniq[0]: true, uniq[len(uniq)-1]: true}

				counts := make(map[float64]int, len(data))
				for _, v := range data {
					counts[v]++
				}
				modeVal, modeN := uniq[0], 0
				for v, n := range counts {
					if n > modeN || (n == modeN && v < modeVal) {
						modeVal, modeN = v, n
					}
				}
				avgFreq := 1.0 / float64(len(uniq))
				if float64(modeN)/float64(len(data)) > 5*avgFreq {
					candidates[modeVal] = true
				}

				gapsAll := diffs(uniq)
				medDiff := medianOf(gapsAll)
				if medDiff <= 0 {
					medDiff = 1
				}

				var placeholders []string
				placeholderRows := 0
				for _, val := range sortedKeys(candidates) {
					score := 0
					gap := 0.0
					switch val {
					case uniq[len(uniq)-1]:
						gap = val - uniq[len(uniq)-2]
					case uniq[0]:
						gap = uniq[1] - val
					}
					if gap/medDiff > 50 {
						score += 30
					}
					if digitEntropy(val) <= 2 {
						score += 20
					}
					if math.Abs(math.Mod(val, 10)) < 1e-6 {
						score += 10
					}
					if score >= ctx.Cfg.PlaceholderScore {
						placeholders = append(placeholders, strconv.FormatFloat(val, 'f', -1, 64))
						placeholderRows += counts[val]
					}
				}
				if len(placeholders) == 0 {
					continue
				}

				missingRatio := (float64(col.Len()-len(data)) + float64(placeholderRows)) / float64(col.Len())
				status := schema.StatusWarning
				if missingRatio > 0.8 {
					status = schema.StatusDanger
				}
				findings = append(findings, schema.Finding{
					ID:                   "numeric_placeholder:" + col.Name,
					Title:                "No sentinel values masquerade as data",
					Metric:               round4(missingRatio),
					Status:               status,
					RiskCode:             "SENTINEL_VALUES",
					Scope:                schema.ScopeColumn,
					Columns:              []string{col.Name},
					Evidence:             map[string]any{"placeholder_rows": float64(placeholderRows)},
					DetectedPlaceholders: placeholders,
				})
			}
			return findings, nil
		},
	}
}

// digitEntropy counts distinct digits in the rounded absolute value.
func digitEntropy(v float64) int {
	s := strconv.FormatInt(int64(math.Abs(math.Round(v))), 10)
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return len(set)
}

// numericIDStructureCheck detects columns structurally resembling IDs:
// integer-only with near-total uniqueness, sequential when the step is a
// uniform 1.
func numericIDStructureCheck() Check {
	return Check{
		ID:   "numeric_id_structure",
		Name: "ID Structure",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				if len(data) < minGeometryRows {
					continue
				}
				uniq := stats.SortedUnique(data)
				uniqueness := float64(len(uniq)) / float64(len(data))
				if !allIntegerLike(uniq) || uniqueness < ctx.Cfg.IDUniqueness {
					continue
				}

				steps := diffs(uniq)
				medStep := medianOf(steps)
				uniformStep := uniformDiffs(steps)

				profile := "random_id_like"
				if uniformStep && medStep == 1 {
					profile = "sequential_id_like"
				}
				findings = append(findings, schema.Finding{
					ID:       "numeric_id_structure:" + col.Name,
					Title:    "Column is a measurement, not an identifier",
					Metric:   round4(uniqueness),
					Status:   schema.StatusWarning,
					RiskCode: "ID_STRUCTURE",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"profile":          profile,
						"uniqueness_ratio": round4(uniqueness),
						"median_step":      round4(medStep),
						"uniform_step":     uniformStep,
					},
				})
			}
			return findings, nil
		},
	}
}

// numericSignValidityCheck flags sign minorities in otherwise one-signed
// columns and extreme scale spikes over the 99th percentile.
func numericSignValidityCheck() Check {
	return Check{
		ID:   "numeric_sign_validity",
		Name: "Sign and Scale Validity",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				data := col.Floats()
				if len(data) == 0 {
					continue
				}
				pos := 0
				for _, v := range data {
					if v >= 0 {
						pos++
					}
				}
				posRatio := float64(pos) / float64(len(data))

				evidence := map[string]any{}
				status := schema.StatusSafe
				minority := ctx.Cfg.SignMinorityRatio
				if posRatio > 1-minority && posRatio < 1 {
					evidence["dominant_sign"] = "positive"
					evidence["minority_ratio"] = round4(1 - posRatio)
					status = schema.StatusWarning
				} else if posRatio > 0 && posRatio < minority {
					evidence["dominant_sign"] = "negative"
					evidence["minority_ratio"] = round4(posRatio)
					status = schema.StatusWarning
				}

				q99 := stats.Quantile(data, 0.99)
				_, max := stats.MinMax(data)
				if q99 > 0 && max/q99 > 10 {
					evidence["max_value"] = max
					evidence["q99"] = round4(q99)
					evidence["spike_ratio"] = round4(max / q99)
					status = schema.StatusDanger
				}

				if status == schema.StatusSafe {
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "numeric_sign_validity:" + col.Name,
					Title:    "Signs and scales are internally consistent",
					Metric:   round4(posRatio),
					Status:   status,
					RiskCode: "SIGN_SCALE_VALIDITY",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: evidence,
				})
			}
			return findings, nil
		},
	}
}

func diffs(sorted []float64) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	out := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		out[i-1] = sorted[i] - sorted[i-1]
	}
	return out
}

func uniformDiffs(gaps []float64) bool {
	if len(gaps) == 0 {
		return true
	}
	first := gaps[0]
	for _, g := range gaps {
		if math.Abs(g-first) > 1e-8+1e-5*math.Abs(first) {
			return false
		}
	}
	return true
}

func allIntegerLike(vals []float64) bool {
	for _, v := range vals {
		if math.Abs(v-math.Round(v)) > 1e-5 {
			return false
		}
	}
	return true
}

func maxOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func sortedKeys(set map[float64]bool) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
