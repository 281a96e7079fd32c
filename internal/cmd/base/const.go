// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package base

const (
	// FlagNameDaemonAddr is the flag used in the base command to read in the
	// address of the cache daemon.
	FlagNameDaemonAddr = "daemon-addr"
	// FlagNameFormat is the flag used to select the output format
	FlagNameFormat = "format"
)

const (
	EnvCacheCLINoColor = `BENEFITS_CACHE_CLI_NO_COLOR`
	EnvCacheCLIFormat  = `BENEFITS_CACHE_CLI_FORMAT`
	// EnvDaemonAddr is read by the client commands. The start command listens
	// on the address from BENEFITS_CACHE_LISTEN_ADDR instead.
	EnvDaemonAddr = `BENEFITS_CACHE_ADDR`
	EnvLogLevel   = `BENEFITS_CACHE_LOG_LEVEL`
	EnvLogFormat  = `BENEFITS_CACHE_LOG_FORMAT`
)

// Exit codes returned by the commands
const (
	CommandSuccess int = iota
	CommandApiError
	CommandCliError
	CommandUserError
)
