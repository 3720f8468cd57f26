/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"
)

// ErrHalted is reported when a run stops before its last step.
var ErrHalted = errors.New("run halted")

// Outcome is the result of a single step.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Duration renders as a Go duration string in JSON and YAML.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// StepResult is what one step did and how it went.
type StepResult struct {
	Name       string       `json:"name"`
	Method     string       `json:"method,omitempty"`
	Path       string       `json:"path,omitempty"`
	Role       apitest.Role `json:"role,omitempty"`
	StatusCode int          `json:"status,omitempty"`
	Outcome    Outcome      `json:"outcome"`
	Detail     string       `json:"detail,omitempty"`
	TraceID    string       `json:"traceID,omitempty"`
	Duration   Duration     `json:"duration"`

	err error
}

// Err is the failure of the step, nil unless it failed.
func (s StepResult) Err() error {
	return s.err
}

// Summary counts step outcomes.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Report collects the results of a run.
type Report struct {
	BaseURL string       `json:"baseURL"`
	Started time.Time    `json:"started"`
	Steps   []StepResult `json:"steps"`
	Summary Summary      `json:"summary"`

	// halt is why the run stopped early, if it did.
	halt error
}

func NewReport(baseURL string) *Report {
	return &Report{
		BaseURL: baseURL,
		Started: time.Now().UTC(),
	}
}

// Add appends a step result.
func (r *Report) Add(result StepResult) {
	r.Steps = append(r.Steps, result)

	r.Summary.Total++

	switch result.Outcome {
	case OutcomePassed:
		r.Summary.Passed++
	case OutcomeFailed:
		r.Summary.Failed++
	case OutcomeSkipped:
		r.Summary.Skipped++
	}
}

// Step looks up a result by step name.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}

	return StepResult{}, false
}

// Halt records why the remaining steps were skipped.
func (r *Report) Halt(err error) {
	r.halt = err
}

// Passed is true when no step failed or was skipped.
func (r *Report) Passed() bool {
	return r.Summary.Failed == 0 && r.Summary.Skipped == 0
}

// Err aggregates every step failure and, when steps were skipped, the reason
// the run stopped. It is nil only when every step passed.
func (r *Report) Err() error {
	var errs []error

	for i := range r.Steps {
		if err := r.Steps[i].err; err != nil {
			errs = append(errs, fmt.Errorf("step %q: %w", r.Steps[i].Name, err))
		}
	}

	if r.Summary.Skipped > 0 {
		halt := r.halt
		if halt == nil {
			halt = ErrHalted
		}

		errs = append(errs, fmt.Errorf("%d steps skipped: %w", r.Summary.Skipped, halt))
	}

	return utilerrors.NewAggregate(errs)
}

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}

	return "", fmt.Errorf("unknown report format %q, must be one of text, json, yaml", s)
}

// Write renders the report.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(r)
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	case FormatText, "":
		return r.writeText(w)
	}

	return fmt.Errorf("unknown report format %q", format)
}

func (r *Report) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "STEP\tOUTCOME\tSTATUS\tCALL\tROLE\tDURATION\tDETAIL\n")

	for _, s := range r.Steps {
		status := "-"
		if s.StatusCode != 0 {
			status = strconv.Itoa(s.StatusCode)
		}

		call := "-"
		if s.Method != "" {
			call = s.Method + " " + s.Path
		}

		role := "-"
		if s.Role != "" {
			role = string(s.Role)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Name, s.Outcome, status, call, role, time.Duration(s.Duration).Round(time.Millisecond), s.Detail)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d steps against %s: %d passed, %d failed, %d skipped\n", r.Summary.Total, r.BaseURL, r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped)

	return err
}
