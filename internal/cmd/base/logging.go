// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package base

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/coverline/benefitcache/internal/cmd/base/logging"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-secure-stdlib/gatedwriter"
)

func ProcessLogLevelAndFormat(flagLogLevel, flagLogFormat, configLogLevel, configLogFormat string) (hclog.Level, logging.LogFormat, error) {
	logFormat := logging.UnspecifiedFormat

	// If the flag wasn't set, check config; if not set use info
	logLevel := strings.ToLower(strings.TrimSpace(flagLogLevel))
	if logLevel == "" {
		logLevel = strings.ToLower(strings.TrimSpace(configLogLevel))
		if logLevel == "" {
			logLevel = "info"
		}
	}

	// Set level based off text value
	var level hclog.Level
	switch logLevel {
	case "trace":
		level = hclog.Trace
	case "debug":
		level = hclog.Debug
	case "notice", "info":
		level = hclog.Info
	case "warn", "warning":
		level = hclog.Warn
	case "err", "error":
		level = hclog.Error
	default:
		return level, logFormat, fmt.Errorf("unknown log level: %s", logLevel)
	}

	if flagLogFormat != "" {
		var err error
		logFormat, err = logging.ParseLogFormat(flagLogFormat)
		if err != nil {
			return level, logFormat, err
		}
	}
	if logFormat == logging.UnspecifiedFormat {
		var err error
		logFormat, err = logging.ParseLogFormat(configLogFormat)
		if err != nil {
			return level, logFormat, err
		}
	}

	return level, logFormat, nil
}

// GatedLogger buffers log output until ReleaseLogGate is called, so the
// startup banner is printed before any log line.
type GatedLogger struct {
	Logger    hclog.Logger
	LogLevel  hclog.Level
	LogFormat logging.LogFormat

	gatedWriter *gatedwriter.Writer
	logOutput   io.Writer
}

// SetupLogging builds a logger writing to out once the gate is released.
func SetupLogging(out io.Writer, flagLogLevel, flagLogFormat, configLogLevel, configLogFormat string) (*GatedLogger, error) {
	logLevel, logFormat, err := ProcessLogLevelAndFormat(flagLogLevel, flagLogFormat, configLogLevel, configLogFormat)
	if err != nil {
		return nil, err
	}
	gw := gatedwriter.NewWriter(out)

	var logLock sync.Mutex
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "benefitcache",
		Output: gw,
		Level:  logLevel,
		// Note that if logFormat is either unspecified or standard, then
		// the resulting logger's format will be standard.
		JSONFormat: logFormat == logging.JSONFormat,
		Mutex:      &logLock,
	})
	return &GatedLogger{
		Logger:      logger,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		gatedWriter: gw,
		logOutput:   out,
	}, nil
}

// ReleaseLogGate flushes the buffered log lines and writes directly to the
// output from then on.
func (g *GatedLogger) ReleaseLogGate() error {
	r, ok := g.Logger.(hclog.OutputResettable)
	if !ok {
		return g.gatedWriter.Flush()
	}
	return r.ResetOutputWithFlush(&hclog.LoggerOptions{
		Output: g.logOutput,
	}, g.gatedWriter)
}
