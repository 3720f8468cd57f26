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

package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/nscaledev/taskflow-apitest/pkg/apitest"
	"github.com/nscaledev/taskflow-apitest/pkg/constants"
	"github.com/nscaledev/taskflow-apitest/pkg/scenario"

	cr "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func main() {
	var options scenario.Options

	options.AddFlags(pflag.CommandLine)

	zapOptions := zap.Options{}

	goflags := goflag.NewFlagSet("zap", goflag.ExitOnError)
	zapOptions.BindFlags(goflags)
	pflag.CommandLine.AddGoFlagSet(goflags)

	pflag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(&zapOptions)))

	logger := log.Log.WithName("taskflow-apitest")
	logger.Info("harness starting", "application", constants.Application, "version", constants.Version, "revision", constants.Revision)

	ctx := log.IntoContext(cr.SetupSignalHandler(), logger)

	if err := run(ctx, &options); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, options *scenario.Options) error {
	format, err := options.Format()
	if err != nil {
		return err
	}

	config, err := apitest.LoadTestConfig(ctx)
	if err != nil {
		return err
	}

	if err := options.Apply(config); err != nil {
		return err
	}

	fixtures, err := config.Fixtures()
	if err != nil {
		return err
	}

	managedUser := apitest.DefaultManagedUser()

	if options.Unique {
		suffix := apitest.GenerateTestID()

		fixtures = fixtures.WithSuffix(suffix)
		managedUser = managedUser.WithSuffix(suffix)
	}

	log.FromContext(ctx).Info("running scenario", "baseURL", config.BaseURL, "strict", config.Strict, "regular", fixtures.Regular.Username, "admin", fixtures.Admin.Username)

	metrics := scenario.NewMetrics()

	runner := scenario.NewRunner(apitest.NewAPIClient(config), fixtures,
		scenario.WithStrict(config.Strict),
		scenario.WithMetrics(metrics),
		scenario.WithManagedUser(managedUser),
	)

	report, runErr := runner.Run(ctx)

	if err := report.Write(os.Stdout, format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if options.MetricsFile != "" {
		if err := metrics.WriteToTextfile(options.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if runErr != nil || !report.Passed() {
		return fmt.Errorf("scenario failed: %d of %d steps did not pass", report.Summary.Failed+report.Summary.Skipped, report.Summary.Total)
	}

	return nil
}
