package check

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/signal"
	"github.com/dshills/datatriage/internal/stats"
)

// vifColumnCap bounds the quadratic VIF pass; datasets wider than this skip
// the variance-inflation scan and rely on pairwise correlation alone.
const vifColumnCap = 16

// nmiBins is the discretization width for mutual-information estimates.
const nmiBins = 20

// stabilitySeed fixes the subsample shuffle so extraction stays
// deterministic run to run.
const stabilitySeed = 42

// resolveTarget returns the designated target column, falling back to the
// last column when none was set.
func resolveTarget(ctx *Context) *dataset.Column {
	if ctx.Target != "" {
		return ctx.Dataset.Column(ctx.Target)
	}
	cols := ctx.Dataset.Columns()
	if len(cols) == 0 {
		return nil
	}
	return cols[len(cols)-1]
}

// targetLeakageNumericCheck flags numeric features whose absolute Pearson
// correlation with the target is suspiciously strong.
func targetLeakageNumericCheck() Check {
	return Check{
		ID:   "target_leakage_numeric",
		Name: "Numeric Target Leakage",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			target := resolveTarget(ctx)
			if target == nil || target.NumericRatio() == 0 {
				return nil, nil
			}
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				if col.Name == target.Name {
					continue
				}
				a, b := signal.PairedFloats(col, target, 1)
				if len(a) < 2 {
					continue
				}
				score := math.Abs(stats.Correlation(a, b))

				switch {
				case score >= ctx.Cfg.TargetLeakage:
					findings = append(findings, schema.Finding{
						ID:       "target_leakage_numeric:" + col.Name,
						Title:    "Feature does not leak the target",
						Metric:   round4(score),
						Status:   schema.StatusDanger,
						RiskCode: "suspicious_target_dependency",
						Scope:    schema.ScopeColumn,
						Columns:  []string{col.Name},
						Evidence: map[string]any{
							"metric":               "pearson_correlation",
							"association_strength": round4(score),
							"target":               target.Name,
						},
						Info: "Association is unusually strong. May indicate leakage, proxy variables, or post-outcome features.",
					})
				case score >= ctx.Cfg.TargetAssociationWarning:
					findings = append(findings, schema.Finding{
						ID:       "target_leakage_numeric:" + col.Name,
						Title:    "Feature does not leak the target",
						Metric:   round4(score),
						Status:   schema.StatusWarning,
						RiskCode: "strong_target_association",
						Scope:    schema.ScopeColumn,
						Columns:  []string{col.Name},
						Evidence: map[string]any{
							"metric":               "pearson_correlation",
							"association_strength": round4(score),
							"target":               target.Name,
						},
						Info: "Feature is a dominant predictor. Ensure it is available at prediction time.",
					})
				}
			}
			return findings, nil
		},
	}
}

// targetLeakageCategoricalCheck measures category-target association with
// normalized mutual information (categorical target) or the correlation
// ratio (numeric target).
func targetLeakageCategoricalCheck() Check {
	return Check{
		ID:   "target_leakage_categorical",
		Name: "Categorical Target Leakage",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			target := resolveTarget(ctx)
			if target == nil {
				return nil, nil
			}
			numericTarget := target.Domain() == dataset.DomainNumeric

			var findings []schema.Finding
			for _, col := range ctx.Dataset.CategoricalColumns() {
				if col.Name == target.Name || col.UniqueCount() <= 1 {
					continue
				}

				var score float64
				var metric string
				if numericTarget {
					score = correlationRatio(col, target)
					metric = "correlation_ratio"
				} else {
					score = normalizedMutualInfo(col, target)
					metric = "normalized_mutual_information"
				}

				var status schema.Status
				var code string
				switch {
				case score >= ctx.Cfg.TargetLeakage:
					status, code = schema.StatusDanger, "suspicious_target_dependency"
				case score >= ctx.Cfg.TargetAssociationWarning:
					status, code = schema.StatusWarning, "strong_target_association"
				default:
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "target_leakage_categorical:" + col.Name,
					Title:    "Feature does not leak the target",
					Metric:   round4(score),
					Status:   status,
					RiskCode: code,
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"metric": metric,
						"value":  round4(score),
						"target": target.Name,
					},
				})
			}
			return findings, nil
		},
	}
}

// correlationRatio computes eta-squared: the share of target variance
// explained by grouping on the category.
func correlationRatio(cat, target *dataset.Column) float64 {
	groups := make(map[string][]float64)
	var all []float64
	for i := 0; i < cat.Len(); i++ {
		if cat.IsNull(i) || target.IsNull(i) {
			continue
		}
		v, ok := parseCellFloat(target.Value(i))
		if !ok {
			continue
		}
		groups[cat.Value(i)] = append(groups[cat.Value(i)], v)
		all = append(all, v)
	}
	if len(all) == 0 {
		return 0
	}
	overall := stats.Mean(all)
	ssBetween, ssTotal := 0.0, 0.0
	for _, g := range groups {
		d := stats.Mean(g) - overall
		ssBetween += float64(len(g)) * d * d
	}
	for _, v := range all {
		d := v - overall
		ssTotal += d * d
	}
	if ssTotal == 0 {
		return 0
	}
	return ssBetween / ssTotal
}

// normalizedMutualInfo computes 2·MI/(Hx+Hy) over the joint label
// distribution of two columns.
func normalizedMutualInfo(x, y *dataset.Column) float64 {
	joint := make(map[[2]string]int)
	xc := make(map[string]int)
	yc := make(map[string]int)
	n := 0
	for i := 0; i < x.Len(); i++ {
		if x.IsNull(i) || y.IsNull(i) {
			continue
		}
		xv, yv := x.Value(i), y.Value(i)
		joint[[2]string{xv, yv}]++
		xc[xv]++
		yc[yv]++
		n++
	}
	if n == 0 {
		return 0
	}
	mi := 0.0
	for k, c := range joint {
		pxy := float64(c) / float64(n)
		px := float64(xc[k[0]]) / float64(n)
		py := float64(yc[k[1]]) / float64(n)
		mi += pxy * math.Log2(pxy/(px*py))
	}
	hx := entropyOfCounts(xc, n)
	hy := entropyOfCounts(yc, n)
	if hx+hy == 0 {
		return 0
	}
	return 2 * mi / (hx + hy)
}

func entropyOfCounts(counts map[string]int, n int) float64 {
	h := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// numericPairRedundancyCheck audits numeric-numeric independence three ways:
// pairwise Pearson correlation, variance inflation, and normalized mutual
// information for relationships the linear scans miss.
func numericPairRedundancyCheck() Check {
	return Check{
		ID:   "numeric_pair_redundancy",
		Name: "Numeric Independence",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			cols := nonConstantNumeric(ctx.Dataset)
			if len(cols) < 2 {
				return nil, nil
			}
			var findings []schema.Finding

			// Linear redundancy.
			for i := 0; i < len(cols); i++ {
				for j := i + 1; j < len(cols); j++ {
					a, b := signal.PairedFloats(cols[i], cols[j], 1)
					if len(a) < 2 {
						continue
					}
					score := math.Abs(stats.Correlation(a, b))
					if score >= ctx.Cfg.RedundancyCorrelation {
						findings = append(findings, schema.Finding{
							ID:       "numeric_pair_redundancy:" + cols[i].Name + ":" + cols[j].Name,
							Title:    "Numeric features are independent",
							Metric:   round4(score),
							Status:   schema.StatusDanger,
							RiskCode: "LINEAR_REDUNDANCY",
							Scope:    schema.ScopeColumn,
							Columns:  []string{cols[i].Name, cols[j].Name},
							Evidence: map[string]any{"metric": "pearson_correlation", "value": round4(score)},
						})
						continue
					}

					// Non-linear redundancy, only where the monotonic scans
					// found nothing.
					if math.Abs(stats.Spearman(a, b)) >= ctx.Cfg.SpearmanSkip {
						continue
					}
					if lowEntropy(a) || lowEntropy(b) {
						continue
					}
					nmi := binnedMutualInfoRatio(a, b)
					if nmi >= ctx.Cfg.MutualInfoRatio {
						findings = append(findings, schema.Finding{
							ID:       "numeric_pair_redundancy:" + cols[i].Name + ":" + cols[j].Name,
							Title:    "Numeric features are independent",
							Metric:   round4(nmi),
							Status:   schema.StatusWarning,
							RiskCode: "NONLINEAR_REDUNDANCY",
							Scope:    schema.ScopeColumn,
							Columns:  []string{cols[i].Name, cols[j].Name},
							Evidence: map[string]any{"metric": "normalized_mutual_information", "value": round4(nmi)},
						})
					}
				}
			}

			// Identifiability via variance inflation.
			if len(cols) <= vifColumnCap {
				for i, col := range cols {
					vif := varianceInflation(cols, i)
					if math.IsInf(vif, 0) || math.IsNaN(vif) {
						continue
					}
					if vif >= ctx.Cfg.VarianceInflation {
						findings = append(findings, schema.Finding{
							ID:       "numeric_pair_redundancy:vif:" + col.Name,
							Title:    "Numeric features are independent",
							Metric:   round4(vif),
							Status:   schema.StatusDanger,
							RiskCode: "LINEAR_DEPENDENCE",
							Scope:    schema.ScopeColumn,
							Columns:  []string{col.Name},
							Evidence: map[string]any{"metric": "variance_inflation_factor", "value": round4(vif)},
						})
					}
				}
			}
			return findings, nil
		},
	}
}

// lowEntropy reports whether a slice has too few distinct values for a
// meaningful mutual-information estimate.
func lowEntropy(x []float64) bool {
	return float64(len(stats.SortedUnique(x)))/float64(len(x)) < 0.05
}

// binnedMutualInfoRatio discretizes both slices into equal-width bins and
// returns MI normalized by the smaller marginal entropy.
func binnedMutualInfoRatio(a, b []float64) float64 {
	ia := binIndexes(a, nmiBins)
	ib := binIndexes(b, nmiBins)
	joint := make(map[[2]int]int)
	ca := make(map[int]int)
	cb := make(map[int]int)
	n := len(ia)
	for i := 0; i < n; i++ {
		joint[[2]int{ia[i], ib[i]}]++
		ca[ia[i]]++
		cb[ib[i]]++
	}
	mi := 0.0
	for k, c := range joint {
		pxy := float64(c) / float64(n)
		px := float64(ca[k[0]]) / float64(n)
		py := float64(cb[k[1]]) / float64(n)
		mi += pxy * math.Log2(pxy/(px*py))
	}
	ha, hb := 0.0, 0.0
	for _, c := range ca {
		p := float64(c) / float64(n)
		ha -= p * math.Log2(p)
	}
	for _, c := range cb {
		p := float64(c) / float64(n)
		hb -= p * math.Log2(p)
	}
	minH := math.Min(ha, hb)
	if minH == 0 {
		return 0
	}
	return mi / minH
}

func binIndexes(x []float64, bins int) []int {
	min, max := stats.MinMax(x)
	width := (max - min) / float64(bins)
	out := make([]int, len(x))
	if width == 0 {
		return out
	}
	for i, v := range x {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[i] = idx
	}
	return out
}

// varianceInflation computes VIF for column i as 1/(1-R²) of the least
// squares fit of column i on the remaining columns, over rows where every
// column is numeric and present.
func varianceInflation(cols []*dataset.Column, i int) float64 {
	rows := alignedRows(cols)
	if len(rows) <= len(cols) {
		return 0
	}
	y := make([]float64, len(rows))
	x := make([][]float64, len(rows))
	for r, row := range rows {
		y[r] = row[i]
		feats := make([]float64, 0, len(cols)-1)
		for c, v := range row {
			if c != i {
				feats = append(feats, v)
			}
		}
		x[r] = feats
	}
	r2 := linearR2(x, y)
	if r2 >= 1 {
		return math.Inf(1)
	}
	return 1 / (1 - r2)
}

// alignedRows returns the fully-numeric rows across all columns.
func alignedRows(cols []*dataset.Column) [][]float64 {
	if len(cols) == 0 {
		return nil
	}
	n := cols[0].Len()
	var rows [][]float64
	for r := 0; r < n; r++ {
		row := make([]float64, len(cols))
		ok := true
		for c, col := range cols {
			if col.IsNull(r) {
				ok = false
				break
			}
			v, valid := parseCellFloat(col.Value(r))
			if !valid {
				ok = false
				break
			}
			row[c] = v
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// linearR2 fits y = Xb + c by normal equations with Gaussian elimination and
// returns the coefficient of determination. Returns 0 for singular systems.
func linearR2(x [][]float64, y []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	p := len(x[0]) + 1 // features plus intercept

	// Build X'X and X'y with the intercept in column 0.
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	for r := 0; r < n; r++ {
		row := make([]float64, p)
		row[0] = 1
		copy(row[1:], x[r])
		for i := 0; i < p; i++ {
			xty[i] += row[i] * y[r]
			for j := 0; j < p; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}

	beta, ok := solveLinear(xtx, xty)
	if !ok {
		return 0
	}

	meanY := stats.Mean(y)
	ssRes, ssTot := 0.0, 0.0
	for r := 0; r < n; r++ {
		pred := beta[0]
		for j := 0; j < p-1; j++ {
			pred += beta[j+1] * x[r][j]
		}
		dr := y[r] - pred
		dt := y[r] - meanY
		ssRes += dr * dr
		ssTot += dt * dt
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	return r2
}

// solveLinear solves Ax=b by Gaussian elimination with partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, bool) {
	n := len(a)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64{}, a[i]...), b[i])
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m[i][n] / m[i][i]
	}
	return out, true
}

// categoricalRedundancyCheck flags categorical pairs whose bias-corrected
// Cramér's V shows they encode the same information. High-cardinality
// columns are skipped outright.
func categoricalRedundancyCheck() Check {
	return Check{
		ID:   "categorical_redundancy",
		Name: "Categorical Independence",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			cats := ctx.Dataset.CategoricalColumns()
			var findings []schema.Finding
			for i := 0; i < len(cats); i++ {
				for j := i + 1; j < len(cats); j++ {
					a, b := cats[i], cats[j]
					if a.UniqueCount() > ctx.Cfg.CramersCardinalityCap || b.UniqueCount() > ctx.Cfg.CramersCardinalityCap {
						continue
					}
					score := cramersV(a, b)
					if score < ctx.Cfg.CramersV {
						continue
					}
					findings = append(findings, schema.Finding{
						ID:       "categorical_redundancy:" + a.Name + ":" + b.Name,
						Title:    "Categorical features encode independent information",
						Metric:   round3(score),
						Status:   schema.StatusWarning,
						RiskCode: "REDUNDANT_CATEGORIES",
						Scope:    schema.ScopeColumn,
						Columns:  []string{a.Name, b.Name},
						Evidence: map[string]any{"metric": "cramers_v", "value": round3(score)},
					})
				}
			}
			return findings, nil
		},
	}
}

// cramersV computes the bias-corrected Cramér's V of two columns.
func cramersV(a, b *dataset.Column) float64 {
	joint := make(map[[2]string]int)
	ac := make(map[string]int)
	bc := make(map[string]int)
	n := 0
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) || b.IsNull(i) {
			continue
		}
		av, bv := a.Value(i), b.Value(i)
		joint[[2]string{av, bv}]++
		ac[av]++
		bc[bv]++
		n++
	}
	if n == 0 || len(ac) < 2 || len(bc) < 2 {
		return 0
	}

	chi2 := 0.0
	for av, na := range ac {
		for bv, nb := range bc {
			expected := float64(na) * float64(nb) / float64(n)
			observed := float64(joint[[2]string{av, bv}])
			d := observed - expected
			chi2 += d * d / expected
		}
	}

	phi2 := chi2 / float64(n)
	r := float64(len(ac))
	k := float64(len(bc))
	nf := float64(n)

	phi2corr := math.Max(0, phi2-((k-1)*(r-1))/(nf-1))
	rcorr := r - math.Pow(r-1, 2)/(nf-1)
	kcorr := k - math.Pow(k-1, 2)/(nf-1)
	denom := math.Min(kcorr-1, rcorr-1)
	if denom <= 0 {
		return 0
	}
	return math.Sqrt(phi2corr / denom)
}

// scaleCompatibilityCheck flags order-of-magnitude gaps between numeric
// medians and single features that dominate dataset variance.
func scaleCompatibilityCheck() Check {
	return Check{
		ID:   "scale_compatibility",
		Name: "Scale Compatibility",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			cols := nonConstantNumeric(ctx.Dataset)
			if len(cols) < 2 {
				return nil, nil
			}
			var findings []schema.Finding

			magnitudes := make([]float64, len(cols))
			variances := make([]float64, len(cols))
			totalVar := 0.0
			for i, col := range cols {
				vals := col.Floats()
				absVals := make([]float64, len(vals))
				for j, v := range vals {
					absVals[j] = math.Abs(v)
				}
				magnitudes[i] = math.Log10(stats.Median(absVals) + 1e-9)
				variances[i] = stats.Variance(vals)
				totalVar += variances[i]
			}

			minMag, maxMag := stats.MinMax(magnitudes)
			gap := maxMag - minMag
			if gap >= ctx.Cfg.MagnitudeGapDecades {
				var large, small []string
				for i, m := range magnitudes {
					if m >= maxMag-1 {
						large = append(large, cols[i].Name)
					}
					if m <= minMag+1 {
						small = append(small, cols[i].Name)
					}
				}
				findings = append(findings, schema.Finding{
					ID:       "scale_compatibility:magnitude_gap",
					Title:    "Numeric features share a compatible scale",
					Metric:   round4(gap),
					Status:   schema.StatusDanger,
					RiskCode: "ORDER_OF_MAGNITUDE_GAP",
					Scope:    schema.ScopeColumn,
					Columns:  append(append([]string{}, large...), small...),
					Evidence: map[string]any{"metric": "log10_median_gap", "value": round4(gap)},
				})
			}

			if totalVar > 0 {
				for i, v := range variances {
					share := v / totalVar
					if share >= ctx.Cfg.VarianceDominance {
						findings = append(findings, schema.Finding{
							ID:       "scale_compatibility:variance:" + cols[i].Name,
							Title:    "No single feature dominates dataset variance",
							Metric:   round4(share),
							Status:   schema.StatusWarning,
							RiskCode: "VARIANCE_DOMINANCE",
							Scope:    schema.ScopeColumn,
							Columns:  []string{cols[i].Name},
							Evidence: map[string]any{"metric": "relative_variance", "value": round4(share)},
						})
					}
				}
			}
			return findings, nil
		},
	}
}

// distributionDriftCheck computes the population stability index of each
// categorical column between the first and second halves of the dataset, a
// proxy for a train/test split.
func distributionDriftCheck() Check {
	return Check{
		ID:   "distribution_drift",
		Name: "Distribution Drift",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			rows := ctx.Dataset.Rows()
			if rows < 2*ctx.Cfg.StabilityMinRows {
				return nil, nil
			}
			half := rows / 2
			var findings []schema.Finding
			for _, col := range ctx.Dataset.CategoricalColumns() {
				front := make(map[string]int)
				back := make(map[string]int)
				fn, bn := 0, 0
				for i := 0; i < col.Len(); i++ {
					if col.IsNull(i) {
						continue
					}
					if i < half {
						front[col.Value(i)]++
						fn++
					} else {
						back[col.Value(i)]++
						bn++
					}
				}
				if fn == 0 || bn == 0 {
					continue
				}
				psi := populationStabilityIndex(front, fn, back, bn)

				var status schema.Status
				switch {
				case psi >= ctx.Cfg.PSIViolation:
					status = schema.StatusDanger
				case psi >= ctx.Cfg.PSIWarning:
					status = schema.StatusWarning
				default:
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "distribution_drift:" + col.Name,
					Title:    "Category distribution is stationary across splits",
					Metric:   round4(psi),
					Status:   status,
					RiskCode: "DISTRIBUTION_DRIFT",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: map[string]any{
						"psi":          round4(psi),
						"front_unique": float64(len(front)),
						"back_unique":  float64(len(back)),
					},
				})
			}
			return findings, nil
		},
	}
}

// populationStabilityIndex compares two categorical distributions with the
// usual epsilon padding against empty cells.
func populationStabilityIndex(expected map[string]int, en int, actual map[string]int, an int) float64 {
	const eps = 1e-6
	cats := make(map[string]bool)
	for c := range expected {
		cats[c] = true
	}
	for c := range actual {
		cats[c] = true
	}
	psi := 0.0
	for c := range cats {
		e := float64(expected[c])/float64(en) + eps
		a := float64(actual[c])/float64(an) + eps
		psi += (a - e) * math.Log(a/e)
	}
	return psi
}

// relationshipStabilityCheck splits the rows into k random chunks and
// measures the variability of each feature-target correlation across them,
// flagging volatility and sign flips.
func relationshipStabilityCheck() Check {
	return Check{
		ID:   "relationship_stability",
		Name: "Relationship Stability",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			target := resolveTarget(ctx)
			if target == nil || target.NumericRatio() == 0 {
				return nil, nil
			}
			splits := ctx.Cfg.StabilitySplits
			if splits < 2 {
				return nil, nil
			}
			var findings []schema.Finding
			for _, col := range ctx.Dataset.NumericColumns() {
				if col.Name == target.Name {
					continue
				}
				a, b := signal.PairedFloats(col, target, 1)
				if len(a) < splits*ctx.Cfg.StabilityMinRows {
					continue
				}

				// Deterministic shuffle keeps the diagnostic reproducible.
				perm := rand.New(rand.NewSource(stabilitySeed)).Perm(len(a))
				sa := make([]float64, len(a))
				sb := make([]float64, len(b))
				for i, p := range perm {
					sa[i] = a[p]
					sb[i] = b[p]
				}

				var corrs []float64
				chunk := len(sa) / splits
				for s := 0; s < splits; s++ {
					lo, hi := s*chunk, (s+1)*chunk
					if s == splits-1 {
						hi = len(sa)
					}
					c := stats.Correlation(sa[lo:hi], sb[lo:hi])
					if !math.IsNaN(c) {
						corrs = append(corrs, c)
					}
				}
				if len(corrs) < 2 {
					continue
				}

				mean := stats.Mean(corrs)
				std := stats.Std(corrs)
				min, max := stats.MinMax(corrs)
				signFlip := min < -0.1 && max > 0.1
				volatile := std >= ctx.Cfg.StabilityStd
				if !signFlip && !volatile {
					continue
				}

				status := schema.StatusWarning
				if signFlip {
					status = schema.StatusDanger
				}
				findings = append(findings, schema.Finding{
					ID:       "relationship_stability:" + col.Name,
					Title:    "Feature-target relationship holds across subsamples",
					Metric:   round4(std),
					Status:   status,
					RiskCode: "SUBSAMPLE_INSTABILITY",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name, target.Name},
					Evidence: map[string]any{
						"metric":    "subsample_correlation_variability",
						"mean_corr": round4(mean),
						"min_corr":  round4(min),
						"max_corr":  round4(max),
						"std_corr":  round4(std),
						"sign_flip": signFlip,
					},
				})
			}
			return findings, nil
		},
	}
}

// nonConstantNumeric returns the numeric columns with at least two distinct
// values.
func nonConstantNumeric(ds *dataset.Dataset) []*dataset.Column {
	var out []*dataset.Column
	for _, c := range ds.NumericColumns() {
		if c.UniqueCount() > 1 {
			out = append(out, c)
		}
	}
	return out
}

func parseCellFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
