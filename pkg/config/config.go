// Package config registers the settings of mdex with viper.
package config

import (
	"errors"
	"strings"

	"github.com/kerbaras/mdex/pkg/filesystem"
	"github.com/kerbaras/mdex/pkg/where"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, as in MDEX_DOWNLOAD_WORKERS.
	EnvPrefix = "mdex"
	// FileName is the config file name inside where.Config(), without extension.
	FileName = "mdex"
)

var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup loads defaults, environment overrides and the optional mdex.toml.
func Setup() error {
	viper.SetConfigName(FileName)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, k := range Keys {
		viper.MustBindEnv(k)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
