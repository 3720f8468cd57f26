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
	"time"

	"github.com/spf13/pflag"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
)

// Options allows behaviour to be defined on the CLI. Anything set here wins
// over the environment.
type Options struct {
	// BaseURL is the root of the API under test.
	BaseURL string

	// Timeout bounds every request.
	Timeout time.Duration

	// FixturesFile overlays credentials from a YAML file.
	FixturesFile string

	// Strict stops at the first failed step.
	Strict bool

	// Unique suffixes every username so reruns do not conflict.
	Unique bool

	// Output is the report format.
	Output string

	// MetricsFile, if set, receives the run metrics in text format.
	MetricsFile string
}

func (o *Options) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.BaseURL, "base-url", "", "Base URL of the API under test, overrides API_BASE_URL.")
	f.DurationVar(&o.Timeout, "timeout", 0, "Timeout for each request, overrides REQUEST_TIMEOUT.")
	f.StringVar(&o.FixturesFile, "fixtures", "", "YAML file of credential fixtures, overrides FIXTURES_FILE.")
	f.BoolVar(&o.Strict, "strict", false, "Stop at the first failed step and skip the rest.")
	f.BoolVar(&o.Unique, "unique", false, "Append a random suffix to every username and email address.")
	f.StringVar(&o.Output, "output", string(FormatText), "Report format, one of text, json or yaml.")
	f.StringVar(&o.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file.")
}

// Apply overlays the options onto a configuration and revalidates it.
func (o *Options) Apply(config *apitest.TestConfig) error {
	if o.BaseURL != "" {
		config.BaseURL = o.BaseURL
	}

	if o.Timeout != 0 {
		config.RequestTimeout = o.Timeout
	}

	if o.FixturesFile != "" {
		config.FixturesFile = o.FixturesFile
	}

	if o.Strict {
		config.Strict = true
	}

	return config.Validate()
}

// Format returns the parsed report format.
func (o *Options) Format() (Format, error) {
	return ParseFormat(o.Output)
}
