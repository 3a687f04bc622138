// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/centure/chainindex/chaincfg"
	"github.com/centure/chainindex/internal/version"
	"github.com/decred/dcrd/dcrutil/v4"
)

const (
	appName            = "chainindexctl"
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = appName + ".log"
	defaultDbDirname   = "blockindex"
	defaultNetwork     = "regnet"
)

var (
	defaultHomeDir = dcrutil.AppDataDir(appName, false)
	defaultDataDir = filepath.Join(defaultHomeDir, "data")
	defaultLogDir  = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the options shared by every command.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store the block index database"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	Network       string `short:"n" long:"network" description:"Network the block index is for" choice:"mainnet" choice:"testnet" choice:"regnet"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	params *chaincfg.Params
}

// newDefaultConfig returns a config with the default values populated.
func newDefaultConfig() *config {
	return &config{
		HomeDir:    defaultHomeDir,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		Network:    defaultNetwork,
		DebugLevel: defaultLogLevel,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]
	var pathSeparators string
	if os.PathSeparator == '/' {
		pathSeparators = "/"
	} else {
		pathSeparators = string(os.PathSeparator) + "/"
	}
	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}
	homeDir := ""
	if userName == "" {
		homeDir, _ = os.UserHomeDir()
	}
	if homeDir == "" {
		homeDir = dcrutil.AppDataDir("", false)
		homeDir = filepath.Dir(homeDir)
	}
	return filepath.Join(homeDir, path)
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// finish validates the parsed options, resolves the network parameters and
// paths, and initializes logging.  Every command calls it before running.
func (cfg *config) finish() error {
	if cfg.ShowVersion {
		fmt.Println(versionString())
		os.Exit(0)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	params, err := chaincfg.ParamsByName(cfg.Network)
	if err != nil {
		return fmt.Errorf("invalid network %q: %w", cfg.Network, err)
	}
	cfg.params = params

	// Update the data and log directories when the home directory was
	// changed and they were not.
	cfg.HomeDir = cleanAndExpandPath(cfg.HomeDir)
	if cfg.HomeDir != defaultHomeDir {
		if cfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, "data")
		}
		if cfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		}
	}

	// Append the network type to the data and log directories so they are
	// namespaced per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), params.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), params.Name)

	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := initLogRotator(logFile); err != nil {
			return err
		}
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}
	cidxLog.Infof("Version %s", versionString())
	return nil
}

// versionString returns the version of the tool along with the Go version and
// platform it was built for.
func versionString() string {
	return fmt.Sprintf("%s version %s (Go version %s %s/%s)", appName,
		version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// dbPath returns the path of the block index database.
func (cfg *config) dbPath() string {
	return filepath.Join(cfg.DataDir, defaultDbDirname)
}
