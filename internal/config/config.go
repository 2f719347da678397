// Package config loads fel's on-disk configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// _userConfigDir is a seam over [os.UserConfigDir] for tests.
var _userConfigDir = os.UserConfigDir

// Submit holds the settings specific to the submit command.
type Submit struct {
	// BranchPrefix is prepended to every generated branch name,
	// separated by a slash. Empty by default.
	BranchPrefix string `toml:"branch_prefix,omitempty"`

	// UseIndexedBranches names generated branches after the
	// commit's position in the stack instead of its short hash.
	UseIndexedBranches bool `toml:"use_indexed_branches,omitempty"`

	// AutoCreateBranches allows submitting from a detached HEAD by
	// creating a branch for it first.
	AutoCreateBranches bool `toml:"auto_create_branches,omitempty"`

	// AuthoritativeCommits treats the local commit as the source of
	// truth for a pull request's title and body on every submit,
	// overwriting edits made on the forge.
	AuthoritativeCommits bool `toml:"authoritative_commits,omitempty"`
}

// Config is fel's resolved configuration.
type Config struct {
	// Token authenticates requests to the forge's API.
	Token string `toml:"token"`

	// DefaultRemote is the git remote submissions are pushed to and
	// whose default branch is used as the bottom of the stack.
	DefaultRemote string `toml:"default_remote,omitempty"`

	// DefaultUpstream is the name of the remote's default branch.
	DefaultUpstream string `toml:"default_upstream,omitempty"`

	Submit Submit `toml:"submit,omitempty"`
}

// ErrTokenRequired is returned by Load when the configuration file
// does not set a token.
var ErrTokenRequired = errors.New("config: token is required")

func defaults() Config {
	return Config{
		DefaultRemote:   "origin",
		DefaultUpstream: "main",
	}
}

// Load reads configuration from "fel/config.toml" under the user's
// config directory (see [os.UserConfigDir]), filling in defaults for
// anything the file does not set.
func Load() (Config, error) {
	dir, err := _userConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("locate config directory: %w", err)
	}
	return LoadFile(filepath.Join(dir, "fel", "config.toml"))
}

// LoadFile reads configuration from the given path. A missing file is
// not an error; it yields the default configuration, which then fails
// validation for lack of a token.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet; fall through with defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.Token == "" {
		return Config{}, ErrTokenRequired
	}

	return cfg, nil
}
