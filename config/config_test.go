// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/corelog"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir string, cfg interface{}) string {
	path := filepath.Join(dir, "headerdbd.yaml")
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	cfg, rest, err := LoadConfig([]string{"-C", path, "--datadir", dir})
	require.NoError(t, err)
	assert.Empty(t, rest)

	assert.Equal(t, "mainnet", cfg.Net)
	assert.Same(t, &chaincfg.MainNetParams, cfg.NetParams())
	assert.Equal(t, filepath.Join(dir, "mainnet", "headers.dat"), cfg.HeadersFile)
	assert.Equal(t, defaultSaveInterval, cfg.SaveInterval)
	assert.Equal(t, 64, cfg.LocatorCacheSize)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "boltdb", cfg.Archive.DBType)
	assert.Equal(t, uint16(defaultMetricsPort), cfg.Metrics.Port)
	assert.DirExists(t, filepath.Join(dir, "mainnet"))
}

func TestLoadConfigFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"data_dir":      dir,
		"net":           "testnet3",
		"debug_level":   "HIDX=debug,HCHN=warn",
		"save_interval": "30s",
		"archive": map[string]interface{}{
			"enabled": true,
			"db_type": "badgerdb",
		},
		"metrics": map[string]interface{}{
			"enabled": true,
			"port":    9100,
		},
	})

	cfg, _, err := LoadConfig([]string{"-C", path})
	require.NoError(t, err)
	assert.Equal(t, "testnet3", cfg.Net)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, filepath.Join(dir, "testnet3", "archive.badgerdb"), cfg.Archive.Path)
	assert.Equal(t, uint16(9100), cfg.Metrics.Port)
	assert.Equal(t, defaultMetricsRoute, cfg.Metrics.Route)

	// Command line options win over the file.
	cfg, rest, err := LoadConfig([]string{"-C", path, "--net", "regtest", "--metricsport", "9200",
		"--archivetype", "boltdb", "--", "extra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"extra"}, rest)
	assert.Equal(t, "regtest", cfg.Net)
	assert.Same(t, &chaincfg.RegressionNetParams, cfg.NetParams())
	assert.Equal(t, uint16(9200), cfg.Metrics.Port)
	assert.Equal(t, filepath.Join(dir, "regtest", "archive.boltdb"), cfg.Archive.Path)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("net: [unterminated"), 0600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing config file", args: []string{"-C", filepath.Join(dir, "nope.yaml")}},
		{name: "broken config file", args: []string{"-C", broken}},
		{name: "unknown net", args: []string{"-C", empty, "--datadir", dir, "--net", "moon"}},
		{name: "unknown archive", args: []string{"-C", empty, "--datadir", dir, "--archive", "--archivetype", "ffldb"}},
		{name: "bad debug level", args: []string{"-C", empty, "--datadir", dir, "-d", "loud"}},
		{name: "bad subsystem", args: []string{"-C", empty, "--datadir", dir, "-d", "PEER=info"}},
		{name: "bad pair", args: []string{"-C", empty, "--datadir", dir, "-d", "HIDX=info,HCHN"}},
		{name: "negative save interval", args: []string{"-C", empty, "--datadir", dir, "--saveinterval=-1s"}},
		{name: "zero locator cache", args: []string{"-C", empty, "--datadir", dir, "--locatorcache", "0"}},
		{name: "bad metrics route", args: []string{"-C", empty, "--datadir", dir, "--metrics", "--metricsroute", "metrics"}},
		{name: "unknown flag", args: []string{"-C", empty, "--datadir", dir, "--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadConfig(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigHelpAndVersion(t *testing.T) {
	_, _, err := LoadConfig([]string{"-h"})
	require.Error(t, err)
	flagsErr, ok := err.(*flags.Error)
	require.True(t, ok)
	assert.Equal(t, flags.ErrHelp, flagsErr.Type)

	cfg, _, err := LoadConfig([]string{"-V"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "trace", want: zerolog.TraceLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: "info", want: zerolog.InfoLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "critical", want: zerolog.FatalLevel},
		{in: "", wantErr: true},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		level, err := parseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, level)
	}
}

func TestParseAndSetDebugLevels(t *testing.T) {
	logConfig := corelog.Config{DisableConsoleLog: true}
	require.NoError(t, parseAndSetDebugLevels("HIDX=trace,ADB=error", logConfig))

	// Without any output the loggers are disabled whatever the level.
	assert.Equal(t, zerolog.Disabled, Log().GetLevel())
	assert.Equal(t, []string{"ADB", "HCHN", "HDBD", "HIDX", "MTRC"}, supportedSubsystems())

	assert.Error(t, parseAndSetDebugLevels("HIDX", logConfig))
}
