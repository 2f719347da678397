package gittest

import (
	"fmt"
	"os/exec"
)

// DefaultConfig is the default Git configuration
// for all test repositories.
func DefaultConfig() Config {
	return Config{
		"init.defaultBranch": "main",
		"alias.graph":        "log --graph --decorate --oneline",
		"core.autocrlf":      "false",
	}
}

// Config is a set of Git configuration values.
type Config map[string]string

// EnvMap renders the configuration as a set of GIT_CONFIG_KEY_n /
// GIT_CONFIG_VALUE_n / GIT_CONFIG_COUNT environment variables,
// suitable for seeding a testscript environment without writing
// a config file to disk.
func (cfg Config) EnvMap() map[string]string {
	env := make(map[string]string, len(cfg)*2+1)
	i := 0
	for k, v := range cfg {
		env[fmt.Sprintf("GIT_CONFIG_KEY_%d", i)] = k
		env[fmt.Sprintf("GIT_CONFIG_VALUE_%d", i)] = v
		i++
	}
	env["GIT_CONFIG_COUNT"] = fmt.Sprintf("%d", i)
	return env
}

// WriteTo writes the Git configuration to the given file,
// creating it if it does not exist.
func (cfg Config) WriteTo(path string) error {
	args := []string{"config", "--file", path}
	for k, v := range cfg {
		cmd := exec.Command("git", append(args, k, v)...)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}
