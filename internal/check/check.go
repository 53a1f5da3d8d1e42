// Package check implements the assumption-check registry: named,
// threshold-parameterized pure functions that each test one hypothesis
// against the signal bundle and/or raw columns, emitting findings.
package check

import (
	"fmt"
	"sort"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/signal"
)

// Context carries the inputs shared by every check in one run.
type Context struct {
	Dataset *dataset.Dataset
	Signals signal.Bundle
	Target  string
	Cfg     Thresholds
}

// Check is a single named assumption test. Run must be pure, idempotent, and
// order-independent: the verdict never depends on check execution order.
// Layer-1 checks emit exactly one finding; deep checks emit zero or more.
type Check struct {
	ID   string
	Name string
	Run  func(*Context) ([]schema.Finding, error)
}

// DuplicateCheckIDError is a fatal registry misconfiguration, never a data
// condition. It aborts the whole run.
type DuplicateCheckIDError struct {
	ID string
}

func (e *DuplicateCheckIDError) Error() string {
	return fmt.Sprintf("duplicate check id %q", e.ID)
}

// Registry is an ordered set of checks with unique ids.
type Registry struct {
	checks []Check
}

// NewRegistry builds a registry, rejecting id collisions.
func NewRegistry(checks ...Check) (*Registry, error) {
	seen := make(map[string]bool, len(checks))
	for _, c := range checks {
		if seen[c.ID] {
			return nil, &DuplicateCheckIDError{ID: c.ID}
		}
		seen[c.ID] = true
	}
	return &Registry{checks: checks}, nil
}

// Run evaluates every check. A check that returns an error or panics is
// recorded as a failure and contributes no finding; the suite continues.
// Findings are sorted by id so output never depends on execution order.
func (r *Registry) Run(ctx *Context) ([]schema.Finding, []schema.CheckError) {
	var findings []schema.Finding
	var failures []schema.CheckError

	for _, c := range r.checks {
		out, err := runContained(c, ctx)
		if err != nil {
			failures = append(failures, schema.CheckError{CheckID: c.ID, Error: err.Error()})
			continue
		}
		for i := range out {
			if out[i].CheckName == "" {
				out[i].CheckName = c.Name
			}
			if vErr := out[i].Validate(); vErr != nil {
				failures = append(failures, schema.CheckError{CheckID: c.ID, Error: vErr.Error()})
				out = nil
				break
			}
		}
		findings = append(findings, out...)
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].ID < findings[j].ID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].CheckID < failures[j].CheckID })
	return findings, failures
}

// runContained converts a panicking check into a check-level failure.
func runContained(c Check, ctx *Context) (out []schema.Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("check panicked: %v", rec)
		}
	}()
	return c.Run(ctx)
}

// Thresholds centralizes every named constant the checks consume, so tests
// can override a boundary without patching check internals. Zero values are
// never meaningful; start from Defaults.
type Thresholds struct {
	// Layer-1 dataset-scope boundaries.
	MissingSafe              float64
	MissingWarning           float64
	StructuralMissingColumn  float64
	DuplicateSafe            float64
	DuplicateWarning         float64
	CardinalitySafe          float64
	CardinalityWarning       float64
	MulticollinearitySafe    float64
	MulticollinearityWarning float64
	OutlierSafe              float64
	OutlierWarning           float64
	ConstantMeanSafe         float64
	ConstantMeanWarning      float64
	ConstantColumnWarning    float64
	ConstantColumnDanger     float64

	// Categorical deep diagnostics.
	HighCardinalityRatio float64
	TextLikeness         float64
	RareFrequency        float64
	RareCategoryShare    float64
	FuzzySimilarity      float64
	FragmentationShare   float64
	IdentityUniqueRatio  float64
	IdentityReuseRatio   float64
	MaxOneHotDims        int
	MinRowsPerDim        float64

	// Numeric deep diagnostics.
	BimodalityCoefficient float64
	IslandIndex           float64
	PlaceholderScore      int
	IDUniqueness          float64
	ScaleSeparation       float64
	SignMinorityRatio     float64

	// Cross-column and target diagnostics.
	TargetLeakage            float64
	TargetAssociationWarning float64
	RedundancyCorrelation    float64
	VarianceInflation        float64
	MutualInfoRatio          float64
	SpearmanSkip             float64
	CramersV                 float64
	CramersCardinalityCap    int
	MagnitudeGapDecades      float64
	VarianceDominance        float64
	PSIWarning               float64
	PSIViolation             float64
	StabilitySplits          int
	StabilityStd             float64
	StabilityMinRows         int
}

// Defaults returns the reference thresholds. The categorical-domain boundary
// constants are carried as-is and flagged tunable; they are not empirically
// optimal.
func Defaults() Thresholds {
	return Thresholds{
		MissingSafe:              0.05,
		MissingWarning:           0.15,
		StructuralMissingColumn:  0.30,
		DuplicateSafe:            0.005,
		DuplicateWarning:         0.02,
		CardinalitySafe:          0.10,
		CardinalityWarning:       0.50,
		MulticollinearitySafe:    0.02,
		MulticollinearityWarning: 0.10,
		OutlierSafe:              0.05,
		OutlierWarning:           0.15,
		ConstantMeanSafe:         0.50,
		ConstantMeanWarning:      0.80,
		ConstantColumnWarning:    0.90,
		ConstantColumnDanger:     0.95,

		HighCardinalityRatio: 0.90,
		TextLikeness:         0.80,
		RareFrequency:        0.01,
		RareCategoryShare:    0.50,
		FuzzySimilarity:      0.85,
		FragmentationShare:   0.10,
		IdentityUniqueRatio:  0.90,
		IdentityReuseRatio:   0.10,
		MaxOneHotDims:        500,
		MinRowsPerDim:        10.0,

		BimodalityCoefficient: 0.555,
		IslandIndex:           20.0,
		PlaceholderScore:      60,
		IDUniqueness:          0.98,
		ScaleSeparation:       5.0,
		SignMinorityRatio:     0.01,

		TargetLeakage:            0.95,
		TargetAssociationWarning: 0.80,
		RedundancyCorrelation:    0.98,
		VarianceInflation:        10.0,
		MutualInfoRatio:          0.60,
		SpearmanSkip:             0.50,
		CramersV:                 0.95,
		CramersCardinalityCap:    50,
		MagnitudeGapDecades:      3.0,
		VarianceDominance:        0.90,
		PSIWarning:               0.10,
		PSIViolation:             0.25,
		StabilitySplits:          5,
		StabilityStd:             0.15,
		StabilityMinRows:         20,
	}
}

// Layer1 returns the dataset-level triage suite. Every check emits exactly
// one finding; the set feeds the verdict.
func Layer1() []Check {
	return []Check{
		missingRatioCheck(),
		structuralMissingnessCheck(),
		hiddenMissingCheck(),
		duplicatesCheck(),
		constantMeanCheck(),
		constantColumnsCheck(),
		cardinalityCheck(),
		multicollinearityCheck(),
		outlierCheck(),
		mixedTypeCheck(),
	}
}

// Deep returns the extended per-column and cross-column suite. Findings are
// reported in a separate tier and never feed the Layer-1 verdict.
func Deep() []Check {
	return []Check{
		categoricalFiniteSetCheck(),
		categoricalIdentityCheck(),
		encodingDimensionalityCheck(),
		numericOutlierGeometryCheck(),
		numericRedundancyCheck(),
		numericScaleRegimesCheck(),
		numericPlaceholderCheck(),
		numericIDStructureCheck(),
		numericSignValidityCheck(),
		targetLeakageNumericCheck(),
		targetLeakageCategoricalCheck(),
		numericPairRedundancyCheck(),
		categoricalRedundancyCheck(),
		scaleCompatibilityCheck(),
		distributionDriftCheck(),
		relationshipStabilityCheck(),
	}
}
