// Package platform locates the worklog config file, its local override, and the data directory.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "worklog"

// LocalConfigName is the override file read next to config.toml. It carries the API key.
const LocalConfigName = "config.local.toml"

const (
	configFileName = "config.toml"
	devSuffix      = "-dev"
)

// Paths are the per-user locations worklog reads and writes.
type Paths struct {
	ConfigPath      string
	LocalConfigPath string
	// DataDir holds the stores, summary documents, screenshots, and logs.
	DataDir string
}

// Options selects the directory name. DevMode keeps development data apart from daily use.
type Options struct {
	AppName string
	DevMode bool
}

// envOverride names the variables that move the config and data bases on one platform.
type envOverride struct {
	config string
	data   string
}

// macOS and unknown platforms keep the os package defaults.
var envOverrides = map[string]envOverride{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves the locations for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves the locations for the running user and platform.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configBase, dataBase, err := userBaseDirs(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	env := make(map[string]string, 2)
	if o, ok := envOverrides[runtime.GOOS]; ok {
		env[o.config] = os.Getenv(o.config)
		env[o.data] = os.Getenv(o.data)
	}
	return PathsFor(runtime.GOOS, env, configBase, dataBase, dirName(opts))
}

// PathsFor resolves paths from explicit inputs so callers can test every platform.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	switch {
	case userConfigDir == "" || userDataDir == "":
		return Paths{}, errors.New("resolve worklog paths: empty base dirs")
	case appName == "":
		return Paths{}, errors.New("resolve worklog paths: empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := envOverrides[goos]; ok {
		if v := strings.TrimSpace(env[o.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[o.data]); v != "" {
			dataBase = v
		}
	}

	configDir := filepath.Join(configBase, appName)
	return Paths{
		ConfigPath:      filepath.Join(configDir, configFileName),
		LocalConfigPath: filepath.Join(configDir, LocalConfigName),
		DataDir:         filepath.Join(dataBase, appName),
	}, nil
}

func dirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += devSuffix
	}
	return name
}

// userBaseDirs returns the platform config base and the base activity data lives under.
func userBaseDirs(goos string) (string, string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("user config dir: %w", err)
	}
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("user home dir: %w", err)
		}
		return configBase, filepath.Join(home, ".local", "share"), nil
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			return configBase, v, nil
		}
	}
	return configBase, configBase, nil
}
