// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/centure/chainindex/blockchain"
	"github.com/decred/slog"
)

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Logger provides periodic logging of progress towards some action such as
// loading the block index.
type Logger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// These fields accumulate information about headers between log
	// statements.
	receivedHeaders uint64
	receivedWitness uint64
	receivedData    uint64
	receivedInvalid uint64
}

// New returns a new header progress logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
	}
}

// LogProgress accumulates details for the provided block index entry and
// periodically (every 10 seconds) logs an information message to show progress
// to the user along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
//
// The progress message is templated as follows:
//
//	{progressAction} {numProcessed} {headers|header} in the last {timePeriod}
//	({numWitness} witness, {numData} with data, {numInvalid} invalid,
//	height {lastHeight}, {lastHeaderTimeStamp})
func (l *Logger) LogProgress(entry *blockchain.IndexEntry, forceLog bool) {
	l.Lock()
	defer l.Unlock()

	l.receivedHeaders++
	if entry.Header.HasWitness() {
		l.receivedWitness++
	}
	if entry.Status.HaveData {
		l.receivedData++
	}
	if entry.Status.KnownInvalid() {
		l.receivedInvalid++
	}
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < time.Second*10 {
		return
	}

	// Log information about the progress.
	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (%d witness, %d "+
		"with data, %d invalid, height %d, %s)", l.progressAction,
		l.receivedHeaders, pickNoun(l.receivedHeaders, "header", "headers"),
		duration.Seconds(), l.receivedWitness, l.receivedData,
		l.receivedInvalid, entry.Height, entry.Header.Time())

	l.receivedHeaders = 0
	l.receivedWitness = 0
	l.receivedData = 0
	l.receivedInvalid = 0
	l.lastLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.Lock()
	l.lastLogTime = time
	l.Unlock()
}
