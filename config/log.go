// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headerdb/corelog"
	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/node/metrics"
)

const (
	logUnitHIDX = "HIDX"
	logUnitHCHN = "HCHN"
	logUnitADB  = "ADB"
	logUnitMTRC = "MTRC"
	logUnitHDBD = "HDBD"
)

var (
	unitLogsLock sync.RWMutex

	// unitLogs maps each subsystem identifier to its associated logger.
	unitLogs = map[string]zerolog.Logger{
		logUnitHIDX: corelog.Disabled,
		logUnitHCHN: corelog.Disabled,
		logUnitADB:  corelog.Disabled,
		logUnitMTRC: corelog.Disabled,
		logUnitHDBD: corelog.Disabled,
	}
)

// Log returns the logger of the daemon itself.
func Log() zerolog.Logger {
	unitLogsLock.RLock()
	defer unitLogsLock.RUnlock()
	return unitLogs[logUnitHDBD]
}

// setLoggers hands the unit loggers to their packages.
func setLoggers() {
	unitLogsLock.RLock()
	defer unitLogsLock.RUnlock()

	headerindex.UseLogger(unitLogs[logUnitHIDX])
	headerchain.UseLogger(unitLogs[logUnitHCHN])
	database.UseLogger(unitLogs[logUnitADB])
	metrics.UseLogger(unitLogs[logUnitMTRC])
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, level zerolog.Level, logConfig corelog.Config) {
	unitLogsLock.Lock()
	defer unitLogsLock.Unlock()

	if _, ok := unitLogs[subsystemID]; !ok {
		return
	}
	unitLogs[subsystemID] = corelog.New(subsystemID, level, logConfig)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(level zerolog.Level, logConfig corelog.Config) {
	for _, subsystemID := range supportedSubsystems() {
		setLogLevel(subsystemID, level, logConfig)
	}
}

// parseLevel converts a debug level name into a zerolog level.  critical is
// accepted as an alias of fatal.
func parseLevel(logLevel string) (zerolog.Level, error) {
	if logLevel == "critical" {
		logLevel = "fatal"
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" || level == zerolog.NoLevel {
		return zerolog.NoLevel, errors.Errorf("the specified debug level [%v] is invalid", logLevel)
	}
	return level, nil
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	unitLogsLock.RLock()
	defer unitLogsLock.RUnlock()

	// Convert the unitLogs map keys to a slice.
	subsystems := make([]string, 0, len(unitLogs))
	for subsysID := range unitLogs {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string, logConfig corelog.Config) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		level, err := parseLevel(debugLevel)
		if err != nil {
			return err
		}

		// Change the logging level for all subsystems.
		setLogLevels(level, logConfig)
		setLoggers()
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.  Subsystems that are not
	// named keep the default level.
	levels := make(map[string]zerolog.Level)
	for _, subsysID := range supportedSubsystems() {
		levels[subsysID] = corelog.DefaultLevel
	}
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := levels[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		levels[subsysID] = level
	}

	for subsysID, level := range levels {
		setLogLevel(subsysID, level, logConfig)
	}
	setLoggers()
	return nil
}
