// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

// cfg holds the options shared by every command.  It is populated by the
// parser before a command runs.
var cfg = newDefaultConfig()

// newParser returns a parser for the shared options with every command
// registered.
func newParser() (*flags.Parser, error) {
	parser := flags.NewParser(cfg, flags.Default)
	parser.SubcommandsOptional = true
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"generate", "Extend the active chain with synthetic headers",
			"Extend the active chain with synthetic headers, optionally " +
				"adding side branches and witness co-signed blocks",
			&generateCmd{}},
		{"info", "Show the active chain tip and block index summary",
			"Show the active chain tip and block index summary", &infoCmd{}},
		{"locator", "Show the block locator for a block",
			"Show the block locator for a block, or the chain tip when none " +
				"is given", &locatorCmd{}},
		{"fork", "Show the last common ancestor of two blocks",
			"Show the last common ancestor of two blocks along with the " +
				"time equivalent of the work between them", &forkCmd{}},
		{"verify", "Check the integrity of the block index",
			"Check the linkage, skip list, chain work and time of every " +
				"block in the index", &verifyCmd{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// realMain is the real main function for the tool.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() error {
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	parser, err := newParser()
	if err != nil {
		return err
	}
	// Errors are printed by the parser.
	if _, err := parser.Parse(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	// Only the version can be requested without a command.
	if parser.Active == nil {
		if cfg.ShowVersion {
			fmt.Println(versionString())
			return nil
		}
		parser.WriteHelp(os.Stderr)
		return errors.New("no command specified")
	}
	return nil
}

func main() {
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
