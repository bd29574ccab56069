// Package platform resolves where todoboard keeps its files on each OS.
package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultAppName = "todoboard"

// Paths holds the resolved per-user locations for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options selects the app name and whether dev-mode directories are used.
type Options struct {
	AppName string
	DevMode bool
}

// rootOverrides names the env vars that relocate the config and data roots, per GOOS.
var rootOverrides = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths for the running OS and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, err
	}
	dataRoot, err := userDataRoot(runtime.GOOS, configRoot)
	if err != nil {
		return Paths{}, err
	}
	return Resolve(runtime.GOOS, os.Getenv, configRoot, dataRoot, appDirName(opts))
}

// Resolve joins appName onto the config and data roots, honoring the GOOS
// override variables read through getenv.
func Resolve(goos string, getenv func(string) string, configRoot, dataRoot, appName string) (Paths, error) {
	if configRoot == "" || dataRoot == "" {
		return Paths{}, errors.New("config and data roots are required")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("app name is required")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if vars, ok := rootOverrides[goos]; ok {
		configRoot = firstSet(getenv(vars.config), configRoot)
		dataRoot = firstSet(getenv(vars.data), dataRoot)
	}

	configDir := filepath.Join(configRoot, appName)
	dataDir := filepath.Join(dataRoot, appName)
	return Paths{
		ConfigPath: filepath.Join(configDir, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}

// appDirName is the directory name used under both roots; dev mode gets its own tree.
func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = defaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

// userDataRoot picks the base data directory before env overrides apply.
func userDataRoot(goos, configRoot string) (string, error) {
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		return firstSet(os.Getenv("LOCALAPPDATA"), configRoot), nil
	default:
		return configRoot, nil
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
