package operations

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcontractkit/permissioning-deployer/internal/jsonutils"
)

// Report records one execution of an operation or a sequence.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Input     IN           `json:"input"`
	Output    OUT          `json:"output"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// Children are the IDs of the reports a sequence added, in execution order.
	Children []string `json:"children,omitempty"`
}

// ReportError keeps the message of a failed execution, since an error value does not encode to
// JSON.
type ReportError struct {
	Message string `json:"message"`
}

func (e ReportError) Error() string {
	return e.Message
}

func newReport[IN, OUT any](def Definition, input IN, output OUT, err error, children []string) Report[IN, OUT] {
	at := time.Now()
	r := Report[IN, OUT]{
		ID:        uuid.NewString(),
		Def:       def,
		Input:     input,
		Output:    output,
		Timestamp: &at,
		Children:  children,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// erase drops the type parameters so reports of every step fit one store.
func erase[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:        r.ID,
		Def:       r.Def,
		Input:     r.Input,
		Output:    r.Output,
		Timestamp: r.Timestamp,
		Err:       r.Err,
		Children:  r.Children,
	}
}

// Reporter stores the reports of a run.
type Reporter interface {
	AddReport(report Report[any, any]) error
	GetReports() ([]Report[any, any], error)
}

// MemoryReporter keeps reports in memory, in the order they were added.
type MemoryReporter struct {
	mu      sync.RWMutex
	reports []Report[any, any]
}

// NewMemoryReporter returns an empty MemoryReporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

// AddReport appends a report.
func (m *MemoryReporter) AddReport(report Report[any, any]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, report)

	return nil
}

// GetReports returns a copy of every report.
func (m *MemoryReporter) GetReports() ([]Report[any, any], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.reports), nil
}

// WriteFile writes every report to path as a JSON array.
func (m *MemoryReporter) WriteFile(path string) error {
	reports, err := m.GetReports()
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []Report[any, any]{}
	}

	if err = jsonutils.WriteFile(path, reports); err != nil {
		return fmt.Errorf("failed to write reports to %s: %w", path, err)
	}

	return nil
}

// childRecorder forwards reports to the run's reporter and remembers the IDs it forwarded, so a
// sequence report can list the steps it ran.
type childRecorder struct {
	Reporter

	mu  sync.Mutex
	ids []string
}

func (c *childRecorder) AddReport(report Report[any, any]) error {
	if err := c.Reporter.AddReport(report); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, report.ID)

	return nil
}

func (c *childRecorder) children() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.ids)
}
