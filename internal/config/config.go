// Package config loads server configuration from flags, environment
// variables and an optional .env file, with flags taking precedence over
// environment which takes precedence over defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// Mountpoint is one parsed "prefix=directory" entry from the -mountpoint
// flag or MOUNTPOINTS environment variable.
type Mountpoint struct {
	Prefix  string
	Docroot string
}

// Config holds the server's runtime options: mountpoints, the directory
// listing's optional CSS/JavaScript links, its class and wrapper div, and
// the lock cache backend selector.
type Config struct {
	Address        string
	Mountpoints    []Mountpoint
	CSS            []string
	JavaScript     []string
	ClassDirectory string
	Div            string
	LockCache      string // "memory" or "redis"
	RedisAddress   string
	SnapshotPath   string // optional sqlite lock-snapshot path, "" disables it
	MaxLockTimeout time.Duration
	LogLevel       string
}

// Load parses command-line flags, falling back to environment variables
// and an optional .env file loaded first.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("davfsd", flag.ContinueOnError)

	var mounts []string
	var css []string
	var js []string

	fs.StringArrayVar(&mounts, "mountpoint", envStringSlice("MOUNTPOINTS"), "prefix=directory, repeatable")
	fs.StringArrayVar(&css, "css", envStringSlice("DIRLIST_CSS"), "stylesheet URL for directory listings, repeatable")
	fs.StringArrayVar(&js, "javascript", envStringSlice("DIRLIST_JAVASCRIPT"), "script URL for directory listings, repeatable")
	classDirectory := fs.String("class-directory", envOr("DIRLIST_CLASS_DIRECTORY", "directory"), "CSS class for directory entries")
	div := fs.String("div", envOr("DIRLIST_DIV", ""), "wrapping element id for directory listings")
	address := fs.String("address", envOr("ADDRESS", ":8080"), "listen address")
	lockCache := fs.String("lock-cache", envOr("LOCK_CACHE", "memory"), "lock cache backend: memory or redis")
	redisAddress := fs.String("redis-address", envOr("REDIS_ADDRESS", "localhost:6379"), "redis address when lock-cache=redis")
	snapshotPath := fs.String("lock-snapshot", envOr("LOCK_SNAPSHOT_PATH", ""), "sqlite path for lock snapshot persistence, empty disables it")
	maxTimeout := fs.Duration("max-lock-timeout", envDuration("MAX_LOCK_TIMEOUT", time.Hour), "ceiling applied to client-requested LOCK timeouts")
	logLevel := fs.String("log-level", envOr("LOG_LEVEL", "info"), "logrus level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	parsed, err := parseMountpoints(mounts)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("config: at least one -mountpoint is required")
	}

	return &Config{
		Address:        *address,
		Mountpoints:    parsed,
		CSS:            css,
		JavaScript:     js,
		ClassDirectory: *classDirectory,
		Div:            *div,
		LockCache:      *lockCache,
		RedisAddress:   *redisAddress,
		SnapshotPath:   *snapshotPath,
		MaxLockTimeout: *maxTimeout,
		LogLevel:       *logLevel,
	}, nil
}

func parseMountpoints(entries []string) ([]Mountpoint, error) {
	out := make([]Mountpoint, 0, len(entries))
	for _, e := range entries {
		idx := strings.IndexByte(e, '=')
		if idx < 0 {
			return nil, fmt.Errorf("config: mountpoint %q must be prefix=directory", e)
		}
		out = append(out, Mountpoint{Prefix: e[:idx], Docroot: e[idx+1:]})
	}
	return out, nil
}

// MountpointMap returns the parsed mountpoints keyed by prefix, the shape
// mount.NewTable expects.
func (c *Config) MountpointMap() map[string]string {
	m := make(map[string]string, len(c.Mountpoints))
	for _, mp := range c.Mountpoints {
		m[mp.Prefix] = mp.Docroot
	}
	return m
}
