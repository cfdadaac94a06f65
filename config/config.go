// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headerdb/corelog"
	"gitlab.com/jaxnet/headerdb/database"
	_ "gitlab.com/jaxnet/headerdb/database/badgerdb"
	_ "gitlab.com/jaxnet/headerdb/database/boltdb"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFilename  = "headerdbd.yaml"
	defaultHomeDirname     = ".headerdbd"
	defaultLogLevel        = "info"
	defaultHeadersFilename = "headers.dat"
	defaultArchiveType     = "boltdb"
	defaultSaveInterval    = 5 * time.Minute
	defaultMetricsPort     = 2112
	defaultMetricsRoute    = "/metrics"
	defaultMetricsInterval = 10 * time.Second
)

var defaultHomeDir = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDirname
	}
	return filepath.Join(home, defaultHomeDirname)
}()

// ArchiveConfig selects the database that keeps every accepted header, side
// chains included.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled" long:"archive" description:"Keep every accepted header, side chains included, in a database"`
	DBType  string `yaml:"db_type" long:"archivetype" description:"Database backend to use for the header archive"`
	Path    string `yaml:"path" long:"archivepath" description:"Location of the header archive (default: <datadir>/archive.<archivetype>)"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" long:"metrics" description:"Serve prometheus metrics"`
	Port     uint16        `yaml:"port" long:"metricsport" description:"Port of the metrics endpoint"`
	Route    string        `yaml:"route" long:"metricsroute" description:"HTTP route of the metrics endpoint"`
	Interval time.Duration `yaml:"interval" long:"metricsinterval" description:"How often chain gauges are refreshed"`
}

// Config defines the configuration options for headerdbd.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ConfigFile  string `yaml:"-" short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool   `yaml:"-" short:"V" long:"version" description:"Display version information and exit"`

	DataDir     string `yaml:"data_dir" short:"b" long:"datadir" description:"Directory to store data"`
	HeadersFile string `yaml:"headers_file" long:"headersfile" description:"Flat header file (default: <datadir>/<net>/headers.dat)"`
	Net         string `yaml:"net" long:"net" description:"Network: mainnet, testnet3, regtest or simnet"`
	DebugLevel  string `yaml:"debug_level" short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, fatal} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	Feed             string        `yaml:"feed" long:"feed" description:"File with hex encoded headers, one per line, or - for stdin"`
	SaveInterval     time.Duration `yaml:"save_interval" long:"saveinterval" description:"How often the header file is written, 0 saves only on shutdown"`
	LocatorCacheSize int           `yaml:"locator_cache_size" long:"locatorcache" description:"Number of block locators to cache"`

	LogConfig corelog.Config `yaml:"log_config" no-flag:"true"`
	Archive   ArchiveConfig  `yaml:"archive" group:"Archive Options"`
	Metrics   MetricsConfig  `yaml:"metrics" group:"Metrics Options"`
}

// Default returns the configuration used when neither a config file nor
// command line options say otherwise.
func Default() Config {
	return Config{
		ConfigFile:       filepath.Join(defaultHomeDir, defaultConfigFilename),
		DataDir:          defaultHomeDir,
		Net:              string(chaincfg.NetMainNet),
		DebugLevel:       defaultLogLevel,
		SaveInterval:     defaultSaveInterval,
		LocatorCacheSize: 64,
		LogConfig:        corelog.Config{}.Default(),
		Archive: ArchiveConfig{
			DBType: defaultArchiveType,
		},
		Metrics: MetricsConfig{
			Port:     defaultMetricsPort,
			Route:    defaultMetricsRoute,
			Interval: defaultMetricsInterval,
		},
	}
}

// NetParams returns the parameters of the configured network.
func (cfg *Config) NetParams() *chaincfg.Params {
	return chaincfg.NetName(cfg.Net).Params()
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDBType returns whether or not dbType is a supported database type.
func validDBType(dbType string) bool {
	for _, knownType := range database.SupportedDrivers() {
		if dbType == knownType {
			return true
		}
	}
	return false
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// The above results in headerdbd functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
//
// A *flags.Error of type flags.ErrHelp is returned when help was requested.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := Default()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	if preCfg.ShowVersion {
		return &preCfg, nil, nil
	}

	// Load additional config from file.  A missing file is only an error
	// when it was named explicitly.
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	if fileExists(configFile) {
		if err := decodeConfigFile(configFile, &cfg); err != nil {
			return nil, nil, err
		}
	} else if preCfg.ConfigFile != cfg.ConfigFile {
		return nil, nil, errors.Errorf("config file %s does not exist", configFile)
	}
	cfg.ConfigFile = configFile

	// Parse command line options again to ensure they take precedence.
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel, cfg.LogConfig); err != nil {
		return nil, nil, err
	}

	// Create the data directory if it doesn't already exist.
	if err := os.MkdirAll(filepath.Dir(cfg.HeadersFile), 0o700); err != nil {
		return nil, nil, errors.Wrap(err, "unable to create data directory")
	}

	return &cfg, remainingArgs, nil
}

func decodeConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "unable to open config file")
	}
	defer file.Close()

	// An empty file decodes to io.EOF and leaves the defaults in place.
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrapf(err, "unable to parse config file %s", path)
	}
	return nil
}

// normalize expands paths and fills the values derived from other options.
func (cfg *Config) normalize() error {
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	if cfg.DataDir == "" {
		return errors.New("data directory must not be empty")
	}

	netDir := filepath.Join(cfg.DataDir, strings.ToLower(cfg.Net))
	if cfg.HeadersFile == "" {
		cfg.HeadersFile = filepath.Join(netDir, defaultHeadersFilename)
	}
	cfg.HeadersFile = cleanAndExpandPath(cfg.HeadersFile)

	if cfg.Archive.Enabled && cfg.Archive.Path == "" {
		cfg.Archive.Path = filepath.Join(netDir, "archive."+cfg.Archive.DBType)
	}
	cfg.Archive.Path = cleanAndExpandPath(cfg.Archive.Path)

	if cfg.LogConfig.FileLoggingEnabled && !filepath.IsAbs(cfg.LogConfig.Directory) {
		cfg.LogConfig.Directory = filepath.Join(cfg.DataDir, cfg.LogConfig.Directory)
	}
	return nil
}

// Validate checks option values that the parsers cannot check by type.
func (cfg *Config) Validate() error {
	if _, err := chaincfg.ParamsByName(cfg.Net); err != nil {
		return errors.Wrapf(err, "invalid net %q, known networks %v", cfg.Net, chaincfg.KnownNets())
	}

	if cfg.Archive.Enabled && !validDBType(cfg.Archive.DBType) {
		return errors.Errorf("the specified archive type [%v] is invalid -- supported types %v",
			cfg.Archive.DBType, database.SupportedDrivers())
	}

	if cfg.SaveInterval < 0 {
		return errors.Errorf("save interval must not be negative, got %v", cfg.SaveInterval)
	}

	if cfg.LocatorCacheSize <= 0 {
		return errors.Errorf("locator cache size must be positive, got %d", cfg.LocatorCacheSize)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Interval <= 0 {
			return errors.Errorf("metrics interval must be positive, got %v", cfg.Metrics.Interval)
		}
		if !strings.HasPrefix(cfg.Metrics.Route, "/") {
			return errors.Errorf("metrics route %q must start with /", cfg.Metrics.Route)
		}
	}

	if err := cfg.LogConfig.Validate(); err != nil {
		return errors.Wrap(err, "invalid log config")
	}
	return nil
}
