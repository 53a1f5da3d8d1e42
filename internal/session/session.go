// Package session implements the lifecycle controller that gates dataset
// access: load → diagnose → decide → model execution, forward-only, with a
// single unconditional reset edge back to the start.
package session

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/datatriage/internal/check"
	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/review"
	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/signal"
)

// State is the session lifecycle position.
type State string

const (
	StateNoSession          State = "NO_SESSION"
	StateDataLoaded         State = "DATA_LOADED"
	StateDiagnosticsRunning State = "DIAGNOSTICS_RUNNING"
	StateModelDecided       State = "MODEL_DECIDED"
	StateModelExecution     State = "MODEL_EXECUTION"
)

// StateError reports an illegal lifecycle transition. The session is left
// exactly as it was.
type StateError struct {
	Op     string
	State  State
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s (state %s)", e.Op, e.Reason, e.State)
}

var targetNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\s.-]*$`)

// Session owns the active dataset, findings, and verdict for one logical
// caller. All methods are safe for concurrent use; each diagnostic run is
// one blocking computation under the lock.
type Session struct {
	mu sync.Mutex

	cfg    check.Thresholds
	layer1 *check.Registry
	deep   *check.Registry

	state    State
	ds       *dataset.Dataset
	source   string
	target   string
	runID    string
	signals  signal.Bundle
	findings []schema.Finding
	deepOut  []schema.Finding
	failures []schema.CheckError
	verdict  schema.Verdict
}

// Option adjusts session construction.
type Option func(*Session)

// WithThresholds overrides the default check thresholds.
func WithThresholds(t check.Thresholds) Option {
	return func(s *Session) { s.cfg = t }
}

// New builds an idle session with both check suites registered. A duplicate
// check id is a fatal misconfiguration and fails construction.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		cfg:     check.Defaults(),
		state:   StateNoSession,
		verdict: schema.VerdictUnknown,
	}
	for _, opt := range opts {
		opt(s)
	}
	layer1, err := check.NewRegistry(check.Layer1()...)
	if err != nil {
		return nil, err
	}
	deep, err := check.NewRegistry(check.Deep()...)
	if err != nil {
		return nil, err
	}
	s.layer1 = layer1
	s.deep = deep
	return s, nil
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Verdict returns the last committed verdict, UNKNOWN before any run.
func (s *Session) Verdict() schema.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

// Load materializes a dataset from path and takes ownership of it. Legal
// only from NO_SESSION. A loader failure auto-resets before propagating, so
// no half-loaded session survives.
func (s *Session) Load(path string) error {
	return s.loadWith(path, func() (*dataset.Dataset, error) {
		return dataset.Load(path)
	})
}

// LoadBytes is Load for in-memory content; filename supplies the extension
// for format dispatch.
func (s *Session) LoadBytes(data []byte, filename string) error {
	return s.loadWith(filename, func() (*dataset.Dataset, error) {
		return dataset.LoadBytes(data, filename)
	})
}

func (s *Session) loadWith(source string, load func() (*dataset.Dataset, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNoSession {
		return &StateError{Op: "load", State: s.state, Reason: "session busy"}
	}
	ds, err := load()
	if err != nil {
		s.resetLocked()
		return err
	}
	s.ds = ds
	s.source = source
	s.runID = uuid.NewString()
	s.state = StateDataLoaded
	return nil
}

// Columns lists the loaded dataset's column names in order.
func (s *Session) Columns() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, &StateError{Op: "list-columns", State: s.state, Reason: "no dataset loaded"}
	}
	return s.ds.ColumnNames(), nil
}

// SetTarget designates the target column for deep analysis. The name must
// match the identifier pattern and resolve to a column, case-sensitively
// first, then case-insensitively. Layer-1 diagnostics ignore the target.
func (s *Session) SetTarget(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return &StateError{Op: "set-target-column", State: s.state, Reason: "no dataset loaded"}
	}
	if !targetNamePattern.MatchString(name) {
		return fmt.Errorf("invalid column name %q", name)
	}
	if s.ds.HasColumn(name) {
		s.target = name
		return nil
	}
	for _, col := range s.ds.ColumnNames() {
		if strings.EqualFold(col, name) {
			s.target = col
			return nil
		}
	}
	return fmt.Errorf("column %q not found", name)
}

// Target returns the designated target column, empty if none was set.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// RunDiagnostics executes the Layer-1 suite and commits its verdict. Legal
// only from DATA_LOADED; passes through DIAGNOSTICS_RUNNING and lands on
// MODEL_DECIDED. On failure the session is left exactly as before the run.
func (s *Session) RunDiagnostics() (schema.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDataLoaded {
		return schema.Report{}, &StateError{Op: "run-diagnostics", State: s.state, Reason: "diagnostics require a freshly loaded dataset"}
	}

	s.state = StateDiagnosticsRunning
	bundle := signal.Extract(s.ds, "")
	findings, failures := s.layer1.Run(&check.Context{
		Dataset: s.ds,
		Signals: bundle,
		Cfg:     s.cfg,
	})
	if len(findings) == 0 {
		// Every check failed; nothing to decide on.
		s.state = StateDataLoaded
		return schema.Report{}, fmt.Errorf("diagnostics produced no findings (%d checks failed)", len(failures))
	}

	s.signals = bundle
	s.findings = findings
	s.failures = failures
	s.verdict = review.VerdictOf(findings)
	s.state = StateModelDecided
	return s.reportLocked(), nil
}

// RunDeepAnalysis executes the extended per-column and cross-column suite.
// Legal from MODEL_DECIDED or MODEL_EXECUTION; the deep findings go to a
// separate report tier and never change the committed verdict.
func (s *Session) RunDeepAnalysis() (schema.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateModelDecided && s.state != StateModelExecution {
		return schema.Report{}, &StateError{Op: "deep-analysis", State: s.state, Reason: "deep analysis requires completed diagnostics"}
	}

	findings, failures := s.deep.Run(&check.Context{
		Dataset: s.ds,
		Signals: s.signals,
		Target:  s.target,
		Cfg:     s.cfg,
	})
	s.deepOut = findings
	s.failures = append(s.failures, failures...)
	return s.reportLocked(), nil
}

// EnterModelExecution advances to the modeling stage. Legal only from
// MODEL_DECIDED. The transition enforces order, not permission: callers must
// consult Verdict before allowing write or training actions.
func (s *Session) EnterModelExecution() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateModelDecided {
		return &StateError{Op: "enter-model-execution", State: s.state, Reason: "model execution requires a decided verdict"}
	}
	s.state = StateModelExecution
	return nil
}

// Reset returns the session to NO_SESSION, dropping the dataset and all
// findings. Legal from any state; idempotent.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.state = StateNoSession
	s.ds = nil
	s.source = ""
	s.target = ""
	s.runID = ""
	s.signals = signal.Bundle{}
	s.findings = nil
	s.deepOut = nil
	s.failures = nil
	s.verdict = schema.VerdictUnknown
}

// Report returns the current report. Valid once diagnostics have committed.
func (s *Session) Report() (schema.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findings == nil {
		return schema.Report{}, &StateError{Op: "report", State: s.state, Reason: "no diagnostics have run"}
	}
	return s.reportLocked(), nil
}

func (s *Session) reportLocked() schema.Report {
	return review.BuildReport(review.Input{
		Signals:      s.signals,
		Findings:     s.findings,
		DeepFindings: s.deepOut,
		Failures:     s.failures,
		Meta: schema.Meta{
			RunID:        s.runID,
			Source:       s.source,
			TargetColumn: s.target,
		},
	})
}
