package engine

import (
	"fmt"
	"os"
	"time"
)

// Environment variables recognized by FromEnv.
const (
	// EnvRootDir points at the MariaDB build or installation root.
	// Executables are located via the pattern <root>/*/<name>, which covers
	// both build trees (<root>/sql/mariadbd) and install trees
	// (<root>/bin/mariadbd).
	EnvRootDir = "MARIADB_ROOT_DIR"

	// EnvSourceDir points at the source tree of a local build. When set,
	// initialization passes --srcdir so mariadb-install-db can find its
	// support files.
	EnvSourceDir = "MARIADB_SOURCE_DIR"

	// EnvWorkspace is the working directory holding the data directory, the
	// error log and the results directory.
	EnvWorkspace = "MARIADB_DB_WORKSPACE"

	// EnvInitialize controls whether the data directory is initialized on
	// startup ("yes" or "no"). Container images typically initialize at
	// build time and set this to "no".
	EnvInitialize = "DO_INIT_MARIADB"
)

// Defaults for the timing knobs.
const (
	DefaultPollInterval    = time.Second
	DefaultStartupDeadline = 30 * time.Second
	DefaultShutdownGrace   = 10 * time.Second
)

// Config is the immutable configuration of one managed server. It is
// resolved once (usually via FromEnv) and passed by value; nothing mutates
// it afterwards.
type Config struct {
	// RootDir is the MariaDB build or installation root. Required.
	RootDir string

	// SourceDir is the source tree of a local build. Optional.
	SourceDir string

	// Workspace holds the data directory, error log and results. Required.
	Workspace string

	// InitializeOnStart runs mariadb-install-db before the first start.
	InitializeOnStart bool

	// MaxEdgesPerNode bounds the vector index graph degree, passed to the
	// server as --mhnsw_max_edges_per_node. Zero omits the flag.
	MaxEdgesPerNode int

	// PollInterval is how often AwaitReady checks for the socket file.
	PollInterval time.Duration

	// StartupDeadline bounds how long AwaitReady polls before giving up.
	StartupDeadline time.Duration

	// ShutdownGrace bounds how long Stop waits for the server process to
	// exit after the shutdown command.
	ShutdownGrace time.Duration
}

// FromEnv resolves a Config from the process environment. Timing knobs get
// their defaults; RootDir and Workspace are required.
func FromEnv() (Config, error) {
	cfg := Config{
		RootDir:           os.Getenv(EnvRootDir),
		SourceDir:         os.Getenv(EnvSourceDir),
		Workspace:         os.Getenv(EnvWorkspace),
		InitializeOnStart: initializeFromEnv(),
		PollInterval:      DefaultPollInterval,
		StartupDeadline:   DefaultStartupDeadline,
		ShutdownGrace:     DefaultShutdownGrace,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func initializeFromEnv() bool {
	v, ok := os.LookupEnv(EnvInitialize)
	if !ok {
		return true
	}
	return v == "yes"
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("%w: %s must point at the MariaDB build or installation root", ErrInvalidConfig, EnvRootDir)
	}
	if c.Workspace == "" {
		return fmt.Errorf("%w: %s must name the database working directory", ErrInvalidConfig, EnvWorkspace)
	}
	return nil
}

// withDefaults fills zero timing knobs. Configs built by hand (tests,
// embedders) usually only set paths.
func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartupDeadline <= 0 {
		c.StartupDeadline = DefaultStartupDeadline
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	return c
}
