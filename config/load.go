package config

import (
	"errors"
	"io/fs"

	"ltiprovider/core"

	"github.com/fox-one/pkg/config"
	"github.com/joho/godotenv"
)

// Load load config file, LTI_ prefixed env vars override the yaml values
func Load(cfgFile string, cfg *core.Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	config.AutomaticLoadEnv("LTI")
	if err := config.LoadYaml(cfgFile, cfg); err != nil {
		return err
	}

	defaults(cfg)
	return nil
}
