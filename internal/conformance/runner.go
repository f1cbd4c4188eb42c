package conformance

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/metrics"
	"github.com/xdavidwu/openapi-conformance/internal/schema"
)

// Failure is one reason a check did not pass: a violation at Path, or a
// structural problem carried in Err.
type Failure struct {
	Example string
	Check   string
	Path    []string
	Message string
	Err     error
}

func (f Failure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s vs %s: %s", f.Example, f.Check, f.Message)
	}
	return fmt.Sprintf("%s vs %s: %s", f.Example, f.Check, schema.Violation{Path: f.Path, Message: f.Message})
}

type Report struct {
	Checked  int
	Failures []Failure

	maxViolations int
}

func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Lines renders one line per failure, sorted by example then by data path,
// keeping at most the manifest's max_violations violations per check.
func (r *Report) Lines() []string {
	var lines []string
	for start := 0; start < len(r.Failures); {
		first := r.Failures[start]
		end := start
		var violations []schema.Violation
		for ; end < len(r.Failures) &&
			r.Failures[end].Example == first.Example &&
			r.Failures[end].Check == first.Check; end++ {
			f := r.Failures[end]
			if f.Err != nil {
				lines = append(lines, f.String())
				continue
			}
			violations = append(violations, schema.Violation{Path: f.Path, Message: f.Message})
		}

		prefix := fmt.Sprintf("%s vs %s: ", first.Example, first.Check)
		for _, line := range schema.Report(violations, r.maxViolations) {
			lines = append(lines, prefix+line)
		}
		start = end
	}
	return lines
}

// Err combines the structural failures, nil when every failure is a
// violation.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failures {
		if f.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s vs %s: %w", f.Example, f.Check, f.Err))
		}
	}
	return err
}

type Runner struct {
	Manifest *Manifest
	// Reader defaults to document.FileReader.
	Reader document.Reader
	// Workers > 1 checks examples concurrently, one session per worker.
	Workers int
	Log     logr.Logger
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	examples := r.Manifest.Examples
	results := make([][]Failure, len(examples))

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(examples) && len(examples) > 0 {
		workers = len(examples)
	}

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range examples {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		c := r.newChecker(w)
		g.Go(func() error {
			defer c.observe()
			for i := range jobs {
				results[i] = c.check(examples[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Checked: len(examples), maxViolations: r.Manifest.MaxViolations}
	for _, fs := range results {
		report.Failures = append(report.Failures, fs...)
	}
	sortFailures(report.Failures)
	return report, nil
}

type checker struct {
	manifest *Manifest
	session  *deref.Session
	compiled map[string]*schema.Schema
	opts     []schema.CompileOption
	log      logr.Logger
}

func (r *Runner) newChecker(id int) *checker {
	reader := r.Reader
	if reader == nil {
		reader = document.FileReader{}
	}
	log := r.Log.WithValues("worker", id)
	storeOpts := append([]document.Option{document.WithLogger(log)}, r.Manifest.StoreOptions()...)
	return &checker{
		manifest: r.Manifest,
		session:  deref.NewSession(document.NewStore(reader, storeOpts...), log),
		compiled: map[string]*schema.Schema{},
		opts:     r.Manifest.CompileOptions(),
		log:      log,
	}
}

func (c *checker) observe() {
	metrics.ObserveSession(c.session.Store().Stats(), c.session.Stats())
}

func (c *checker) check(e Example) []Failure {
	log := c.log.WithValues("example", e.File, "check", e.Check())
	structural := func(msg string, err error) []Failure {
		log.Error(err, msg)
		metrics.ObserveCheck(metrics.ResultError, 0)
		return []Failure{{
			Example: e.File,
			Check:   e.Check(),
			Message: fmt.Sprintf("%s: %v", msg, err),
			Err:     err,
		}}
	}

	b, err := os.ReadFile(c.manifest.ExamplePath(e))
	if err != nil {
		return structural("missing example file", err)
	}
	instance, err := schema.DecodeInstance(bytes.NewReader(b))
	if err != nil {
		return structural("invalid JSON in example", err)
	}

	compiled, err := c.schemaFor(e)
	if err != nil {
		return structural("cannot resolve schema", err)
	}

	result := compiled.Validate(instance)
	if result.Conformant {
		log.V(1).Info("conforms")
		metrics.ObserveCheck(metrics.ResultPass, 0)
		return nil
	}
	log.Info("does not conform", "violations", len(result.Violations))
	metrics.ObserveCheck(metrics.ResultFail, len(result.Violations))
	failures := make([]Failure, len(result.Violations))
	for i, v := range result.Violations {
		failures[i] = Failure{Example: e.File, Check: e.Check(), Path: v.Path, Message: v.Message}
	}
	return failures
}

func (c *checker) schemaFor(e Example) (*schema.Schema, error) {
	key := e.Check()
	if s, ok := c.compiled[key]; ok {
		return s, nil
	}
	resolved, err := c.session.ResolveNamedSchema(c.manifest.DocumentPath(e.Document), e.Schema)
	if err != nil {
		return nil, err
	}
	s, err := schema.Compile(resolved, c.opts...)
	if err != nil {
		return nil, err
	}
	c.compiled[key] = s
	return s, nil
}

func sortFailures(fs []Failure) {
	slices.SortStableFunc(fs, func(a, b Failure) int {
		if c := strings.Compare(a.Example, b.Example); c != 0 {
			return c
		}
		if c := strings.Compare(a.Check, b.Check); c != 0 {
			return c
		}
		if c := schema.ComparePaths(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
}
