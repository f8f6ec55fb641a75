package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-blockfs/super"
)

const (
	envVarPrefix = "BLOCKFS"
	appName      = "blockfs"
)

// Config holds the geometry used by mkfs when no flag says otherwise, and
// the debug level.
type Config struct {
	BlockSize   uint64 `envconfig:"BLOCK_SIZE"  yaml:"blockSize"`
	NBlocks     uint64 `envconfig:"BLOCKS"      yaml:"blocks"`
	NInodes     uint64 `envconfig:"INODES"      yaml:"inodes"`
	NDataBlocks uint64 `envconfig:"DATA_BLOCKS" yaml:"dataBlocks"` // 0: all that fit
	Debug       uint64 `envconfig:"DEBUG"       yaml:"debug"`
}

func defaultConfig() Config {
	return Config{
		BlockSize: 4096,
		NBlocks:   1024,
		NInodes:   128,
	}
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName+".yaml")
}

// LoadConfig reads configFile, if it exists, over the defaults and then
// applies BLOCKFS_* environment variables.
func LoadConfig(configFile string) (*Config, error) {
	c := defaultConfig()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

// Layout packs a volume with the configured geometry.
func (c *Config) Layout() (*super.SuperBlock, error) {
	return super.MkLayout(c.BlockSize, c.NBlocks, c.NInodes, c.NDataBlocks)
}
