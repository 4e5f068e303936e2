package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/spf13/viper"
)

// Field is a configuration key with its default value.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env is the environment variable that overrides the field.
func (f Field) Env() string {
	return strings.ToUpper(EnvPrefix + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Current is the effective value of the field.
func (f Field) Current() string {
	return fmt.Sprint(viper.Get(f.Key))
}

// Default holds every known field by key.
var Default = make(map[string]Field)

// Keys lists the fields in registration order.
var Keys []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		Keys = append(Keys, k)
	}

	register(APIBaseURL, mangadex.DefaultBaseURL, "MangaDex API root")
	register(APINetworkURL, mangadex.DefaultNetworkURL, "At-home network backend receiving page reports")
	register(APIUploadsURL, mangadex.DefaultUploadsURL, "Host of cover images")
	register(APIRateLimit, mangadex.DefaultRateLimit, "Pause between two listing requests")
	register(APIPageSize, mangadex.DefaultPageSize, "Items requested per listing page, at most 500")
	register(APITimeout, time.Minute, "Timeout of a single HTTP request")

	register(DownloadDir, "", "Root of downloaded chapters. Empty uses ~/Manga")
	register(DownloadWorkers, 4, "Pages of a chapter downloaded at once")
	register(DownloadMaxNodeRetries, 5, "New at-home nodes requested for a failing page before giving up")
	register(DownloadDataSaver, false, "Download compressed pages")
	register(DownloadForcePort443, false, "Only use at-home nodes on port 443")
	register(DownloadLanguage, "en", "Translated language of downloaded chapters")
	register(DownloadExcludedUploaders, []string{}, "Uploaders whose chapters are skipped. Empty uses the built-in list")

	register(LibraryPath, "", "Library database. Empty uses library.db in the config directory")
	register(EPUBDir, "", "Where EPUB files are written. Empty uses ~/Manga/EPUB")
	register(EPUBDevice, "", "Fit EPUB pages to this e-reader, see 'mdex epub --help'")

	register(LogsWrite, false, "Write logs to the config directory")
	register(LogsLevel, "info", "panic, fatal, error, warn, info, debug or trace")
	register(LogsJSON, false, "Use JSON formatted logs")
}
