// Package common implements common chainfuzz command options and utilities.
package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oasisprotocol/chainfuzz/common/logging"
)

const (
	// CfgConfigFile is the flag used to specify a config file.
	CfgConfigFile = "config"

	cfgLogFile  = "log.file"
	cfgLogFmt   = "log.format"
	cfgLogLevel = "log.level"
	// Per module log levels are only supported in the config file.
)

var (
	cfgFile string

	// RootFlags has the flags that are common across all commands.
	RootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	loggingFlags = flag.NewFlagSet("", flag.ContinueOnError)

	rootLog = logging.GetLogger("chainfuzz")
)

// InitConfig reads the config file if one was given and initializes
// logging. It is meant to be used with cobra.OnInitialize.
func InitConfig() {
	if cfgFile != "" {
		// Otherwise default values, command line flags and environment
		// variables are assumed to be sufficient.
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			EarlyLogAndExit(err)
		}
	}

	if err := initLogging(); err != nil {
		EarlyLogAndExit(err)
	}

	rootLog.Debug("common initialization complete",
		"config", cfgFile,
	)
}

// EarlyLogAndExit logs the error and exits.
//
// Note: This routine should only be used prior to the logging system
// being initialized.
func EarlyLogAndExit(err error) {
	fmt.Fprintln(os.Stderr, err) // nolint: errcheck
	os.Exit(1)
}

func initLogging() error {
	var logLevel logging.Level
	moduleLevels := map[string]logging.Level{}
	if err := logLevel.Set(viper.GetString(cfgLogLevel)); err != nil {
		if errDefault := logLevel.Set(viper.GetString(cfgLogLevel + ".default")); errDefault != nil {
			return errDefault
		}

		for k, v := range viper.GetStringMapString(cfgLogLevel) {
			if k == "default" {
				continue
			}

			var lvl logging.Level
			if err = lvl.Set(v); err != nil {
				return err
			}
			moduleLevels[k] = lvl
		}
	}

	var logFmt logging.Format
	if err := logFmt.Set(viper.GetString(cfgLogFmt)); err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if logFile := viper.GetString(cfgLogFile); logFile != "" {
		logFile = filepath.Clean(logFile)

		var err error
		if w, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
			return err
		}
	}

	return logging.Initialize(w, logFmt, logLevel, moduleLevels)
}

func init() {
	logFmt := logging.FmtLogfmt
	logLevel := logging.LevelInfo

	loggingFlags.String(cfgLogFile, "", "log file")
	loggingFlags.Var(&logFmt, cfgLogFmt, "log format")
	loggingFlags.Var(&logLevel, cfgLogLevel, "log level")
	_ = viper.BindPFlags(loggingFlags)

	RootFlags.StringVar(&cfgFile, CfgConfigFile, "", "config file")
	RootFlags.AddFlagSet(loggingFlags)
}
