/*
Copyright (c) 2020 SUSE LLC.

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
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jenting/pkicheck/pkg/config"
	"github.com/jenting/pkicheck/pkg/metrics"
	"github.com/jenting/pkicheck/pkg/plugin"
	"github.com/jenting/pkicheck/pkg/probe"
)

const programName = "pkicheck"

var version = "unreleased"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the check with args and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	logrus.SetOutput(stderr)
	logrus.SetLevel(logrus.WarnLevel)

	p := plugin.New(programName, stdout)

	cfg := config.Default()
	var configPath string
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Check the expiration of the certificates in a PKI directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(stdout, "%s %s\n", programName, version)
				return nil
			}

			c, err := loadConfig(cmd, configPath, cfg)
			if err != nil {
				return err
			}
			check(p, c)
			return nil
		},
	}
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.BaseDir, "basedir", "b", cfg.BaseDir,
		"directory containing the pki tree to scan (required)")
	flags.IntVarP(&cfg.Critical, "critical", "c", cfg.Critical,
		"critical threshold in days")
	flags.IntVarP(&cfg.Warning, "warning", "w", cfg.Warning,
		"warning threshold in days")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose,
		"report certificates which are not going to expire as well")
	flags.BoolVarP(&showVersion, "version", "V", false,
		"print the version and exit")
	flags.StringVar(&cfg.Pattern, "pattern", cfg.Pattern,
		"case-sensitive file name pattern of certificate files")
	flags.StringVar(&cfg.Reader, "reader", cfg.Reader,
		"certificate reader, native or openssl")
	flags.StringVar(&configPath, "config", "",
		"YAML configuration file, flags take precedence")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "",
		"write Prometheus textfile collector metrics to this file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"log level of the diagnostics written to stderr")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(stderr, rootCmd.UsageString())
		p.SetState(plugin.UNKNOWN, err.Error())
		return p.Done()
	}

	// help and version
	if !p.IsSet() {
		return int(plugin.OK)
	}
	return p.Done()
}

// loadConfig merges the configuration file with the flags set explicitly
func loadConfig(cmd *cobra.Command, configPath string, flagConfig *config.Config) (*config.Config, error) {
	c := flagConfig
	if configPath != "" {
		fileConfig, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}

		flags := cmd.Flags()
		override := func(name string, apply func()) {
			if flags.Changed(name) {
				apply()
			}
		}
		override("basedir", func() { fileConfig.BaseDir = flagConfig.BaseDir })
		override("critical", func() { fileConfig.Critical = flagConfig.Critical })
		override("warning", func() { fileConfig.Warning = flagConfig.Warning })
		override("verbose", func() { fileConfig.Verbose = flagConfig.Verbose })
		override("pattern", func() { fileConfig.Pattern = flagConfig.Pattern })
		override("reader", func() { fileConfig.Reader = flagConfig.Reader })
		override("metrics-file", func() { fileConfig.MetricsFile = flagConfig.MetricsFile })
		override("log-level", func() { fileConfig.LogLevel = flagConfig.LogLevel })
		c = fileConfig
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := logrus.ParseLevel(c.LogLevel)
	logrus.SetLevel(level)
	return c, nil
}

// check runs the probe and records its result on the plugin
func check(p *plugin.Plugin, c *config.Config) {
	logrus.Infof("PKI certificate check: %s", version)
	logrus.Infof("Base directory: %s", c.BaseDir)
	logrus.Infof("Thresholds: critical %d days, warning %d days", c.Critical, c.Warning)

	pr, err := probe.New(c)
	if err != nil {
		p.SetState(plugin.UNKNOWN, err.Error())
		return
	}

	result, err := pr.Run()
	if err != nil {
		p.SetState(plugin.UNKNOWN, err.Error())
		return
	}

	if c.MetricsFile != "" {
		m := metrics.New()
		m.Update(pr.Evaluations(), pr.Failures(), result)
		if err := m.WriteFile(c.MetricsFile); err != nil {
			logrus.Errorf("Error writing metrics to %s: %v", c.MetricsFile, err)
		}
	}

	p.SetState(result.Status, result.Message)
}
