package check

import (
	"math"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/schema"
)

// fuzzyLabelCap bounds the pairwise label similarity scan; labels beyond the
// cap (by frequency) are ignored.
const fuzzyLabelCap = 100

// garbageTokens are category labels that encode missingness. Compared
// lowercased.
var garbageTokens = map[string]bool{
	"?": true, "nan": true, "null": true, "none": true, "n/a": true,
	"-": true, "unknown": true, "missing": true, "": true,
}

// categoricalFiniteSetCheck tests the assumption that a categorical column is
// a clean, finite, stable label space: text/ID likeness, long-tail rarity,
// fuzzy-duplicate fragmentation, implicit null tokens, and partial numeric
// coercibility each contribute evidence.
func categoricalFiniteSetCheck() Check {
	return Check{
		ID:   "categorical_finite_set",
		Name: "Finite Category Set",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			dmp := diffmatchpatch.New()

			for _, col := range ctx.Dataset.CategoricalColumns() {
				nonNull := col.NonNull()
				if len(nonNull) == 0 {
					continue
				}
				counts := col.ValueCounts()
				nUnique := len(counts)
				uniqueRatio := float64(nUnique) / float64(len(nonNull))

				evidence := map[string]any{}

				// Text/ID likeness.
				totalLen := 0
				lenSet := make(map[int]bool)
				for _, v := range nonNull {
					totalLen += len(v)
					lenSet[len(v)] = true
				}
				avgLen := float64(totalLen) / float64(len(nonNull))
				uniqueLenRatio := float64(len(lenSet)) / float64(maxInt(nUnique, 1))
				textLikeness := 0.5 * uniqueRatio
				if avgLen > 15 {
					textLikeness += 0.3
				}
				textLikeness += 0.2 * uniqueLenRatio
				if textLikeness > 1 {
					textLikeness = 1
				}
				if uniqueRatio > ctx.Cfg.HighCardinalityRatio || textLikeness > ctx.Cfg.TextLikeness {
					evidence["text_likeness_score"] = round3(textLikeness)
					evidence["unique_ratio"] = round3(uniqueRatio)
				}

				// Long-tail rarity.
				rare := 0
				for _, n := range counts {
					if float64(n)/float64(len(nonNull)) < ctx.Cfg.RareFrequency {
						rare++
					}
				}
				rareShare := float64(rare) / float64(nUnique)
				if rareShare > ctx.Cfg.RareCategoryShare {
					evidence["rare_category_ratio"] = round3(rareShare)
				}

				// Fuzzy-duplicate fragmentation.
				frag := fragmentationScore(dmp, counts, ctx.Cfg.FuzzySimilarity)
				if frag > ctx.Cfg.FragmentationShare {
					evidence["semantic_fragmentation_score"] = round3(frag)
				}

				// Implicit nulls.
				garbage := 0
				for _, v := range nonNull {
					if garbageTokens[strings.ToLower(v)] {
						garbage++
					}
				}
				if garbage > 0 {
					evidence["implicit_null_ratio"] = round3(float64(garbage) / float64(len(nonNull)))
				}

				// Partial numeric coercibility.
				if r := col.NumericRatio(); r > 0 && r < 1 {
					evidence["mixed_type_detected"] = true
				}

				if len(evidence) == 0 {
					continue
				}
				status := schema.StatusWarning
				if uniqueRatio > ctx.Cfg.HighCardinalityRatio || textLikeness > ctx.Cfg.TextLikeness {
					status = schema.StatusDanger
				}
				findings = append(findings, schema.Finding{
					ID:       "categorical_finite_set:" + col.Name,
					Title:    "Categories form a finite, closed label set",
					Metric:   round3(textLikeness),
					Status:   status,
					RiskCode: "UNSTABLE_CATEGORY_SET",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: evidence,
				})
			}
			return findings, nil
		},
	}
}

// fragmentationScore is the share of labels with at least one fuzzy
// near-duplicate among the most frequent labels.
func fragmentationScore(dmp *diffmatchpatch.DiffMatchPatch, counts map[string]int, threshold float64) float64 {
	labels := topLabels(counts, fuzzyLabelCap)
	if len(labels) < 2 {
		return 0
	}
	hits := 0
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			if labelSimilarity(dmp, labels[i], labels[j]) >= threshold {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(labels))
}

// labelSimilarity is 1 minus the normalized Levenshtein distance.
func labelSimilarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1
	}
	longest := maxInt(len(a), len(b))
	if longest == 0 {
		return 1
	}
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	return 1 - float64(dist)/float64(longest)
}

// topLabels returns up to n labels ordered by descending frequency, ties
// broken by name for determinism.
func topLabels(counts map[string]int, n int) []string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > n {
		labels = labels[:n]
	}
	return labels
}

// categoricalIdentityCheck tests "category is a group, not an identity":
// near-uniqueness with little or no value reuse means encoding the column
// would memorize rows.
func categoricalIdentityCheck() Check {
	return Check{
		ID:   "categorical_identity",
		Name: "Category Identity",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			for _, col := range ctx.Dataset.Columns() {
				switch col.Domain() {
				case dataset.DomainCategorical, dataset.DomainIdentifier:
				default:
					continue
				}
				counts := col.ValueCounts()
				nonNull := 0
				reused := 0
				freqs := make([]float64, 0, len(counts))
				for _, n := range counts {
					nonNull += n
					if n > 1 {
						reused++
					}
					freqs = append(freqs, float64(n))
				}
				if nonNull == 0 || len(counts) == 0 {
					continue
				}
				uniqueRatio := float64(len(counts)) / float64(nonNull)
				reuseRatio := float64(reused) / float64(len(counts))
				medianFreq := medianOf(freqs)

				evidence := map[string]any{}
				if uniqueRatio >= ctx.Cfg.IdentityUniqueRatio {
					evidence["unique_ratio"] = round3(uniqueRatio)
				}
				if medianFreq <= 1 {
					evidence["median_frequency"] = medianFreq
				}
				if reuseRatio <= ctx.Cfg.IdentityReuseRatio {
					evidence["reuse_ratio"] = round3(reuseRatio)
				}
				if len(evidence) == 0 {
					continue
				}
				status := schema.StatusWarning
				if uniqueRatio > 0.95 {
					status = schema.StatusDanger
				}
				findings = append(findings, schema.Finding{
					ID:       "categorical_identity:" + col.Name,
					Title:    "Categories represent groups, not identities",
					Metric:   round3(uniqueRatio),
					Status:   status,
					RiskCode: "IDENTITY_COLUMN",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: evidence,
				})
			}
			return findings, nil
		},
	}
}

// encodingDimensionalityCheck projects the one-hot width of each categorical
// column against the row budget.
func encodingDimensionalityCheck() Check {
	return Check{
		ID:   "categorical_encoding_dimensionality",
		Name: "Encoding Dimensionality Risk",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var findings []schema.Finding
			rows := ctx.Dataset.Rows()
			for _, col := range ctx.Dataset.CategoricalColumns() {
				nUnique := col.UniqueCount()
				if nUnique == 0 {
					continue
				}
				projected := maxInt(nUnique-1, 1)
				rowPerDim := float64(rows) / float64(projected)

				evidence := map[string]any{
					"n_unique":               float64(nUnique),
					"projected_ohe_dims":     float64(projected),
					"row_to_dimension_ratio": round3(rowPerDim),
				}

				var status schema.Status
				switch {
				case nUnique >= ctx.Cfg.MaxOneHotDims:
					status = schema.StatusDanger
				case rowPerDim < ctx.Cfg.MinRowsPerDim:
					status = schema.StatusWarning
				default:
					continue
				}
				findings = append(findings, schema.Finding{
					ID:       "categorical_encoding_dimensionality:" + col.Name,
					Title:    "Encoding preserves information",
					Metric:   float64(nUnique),
					Status:   status,
					RiskCode: "ENCODING_EXPLOSION",
					Scope:    schema.ScopeColumn,
					Columns:  []string{col.Name},
					Evidence: evidence,
				})
			}
			return findings, nil
		},
	}
}

func medianOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 0 {
		return (cp[mid-1] + cp[mid]) / 2
	}
	return cp[mid]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
