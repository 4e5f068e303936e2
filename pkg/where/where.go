// Package where resolves the directories and files mdex keeps its state in.
package where

import (
	"os"
	"path/filepath"

	"github.com/kerbaras/mdex/pkg/filesystem"
	"github.com/samber/lo"
)

const appName = "mdex"

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "MDEX_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the configuration directory, $XDG_CONFIG_HOME/mdex on Linux.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok && custom != "" {
		return ensureDir(custom)
	}
	return ensureDir(filepath.Join(lo.Must(os.UserConfigDir()), appName))
}

// Logs is where dated log files are written.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Library is the default path of the library database.
func Library() string {
	return filepath.Join(Config(), "library.db")
}

// Downloads is the default root of downloaded chapters.
func Downloads() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Manga")
}

// Books is where EPUB files are written.
func Books() string {
	return filepath.Join(Downloads(), "EPUB")
}
