// Package config is used to load the configuration file
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/spf13/viper"
)

type tools struct {
	Atos      string        `mapstructure:"atos"`
	Dwarfdump string        `mapstructure:"dwarfdump"`
	Mdfind    string        `mapstructure:"mdfind"`
	Mdls      string        `mapstructure:"mdls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// UUIDReader is "dwarfdump" or "macho" (built-in LC_UUID reader)
	UUIDReader string `mapstructure:"uuid_reader"`
}

type discovery struct {
	Extension string   `mapstructure:"extension"`
	Archives  string   `mapstructure:"archives"`
	Exclude   []string `mapstructure:"exclude"`
	Spotlight bool     `mapstructure:"spotlight"`
	Index     string   `mapstructure:"index"`
}

type symbolicate struct {
	SystemPrefixes []string `mapstructure:"system_prefixes"`
	Parallel       bool     `mapstructure:"parallel"`
	CacheSize      int      `mapstructure:"cache_size"`
}

type daemon struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// Config is the configuration struct
type Config struct {
	Tools       tools       `mapstructure:"tools"`
	Discovery   discovery   `mapstructure:"discovery"`
	Symbolicate symbolicate `mapstructure:"symbolicate"`
	Daemon      daemon      `mapstructure:"daemon"`
}

// SetDefaults registers the default values with viper
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tools.atos", "atos")
	v.SetDefault("tools.dwarfdump", "dwarfdump")
	v.SetDefault("tools.mdfind", "mdfind")
	v.SetDefault("tools.mdls", "mdls")
	v.SetDefault("tools.timeout", 2*time.Minute)
	if runtime.GOOS == "darwin" {
		v.SetDefault("tools.uuid_reader", "dwarfdump")
	} else {
		v.SetDefault("tools.uuid_reader", "macho")
	}
	v.SetDefault("discovery.extension", ".dSYM")
	v.SetDefault("discovery.archives", "~/Library/Developer/Xcode/Archives")
	v.SetDefault("discovery.exclude", []string{})
	v.SetDefault("discovery.spotlight", runtime.GOOS == "darwin")
	v.SetDefault("discovery.index", "")
	v.SetDefault("symbolicate.system_prefixes", crashlog.DefaultSystemPrefixes)
	v.SetDefault("symbolicate.parallel", true)
	v.SetDefault("symbolicate.cache_size", 128)
	v.SetDefault("daemon.host", "localhost")
	v.SetDefault("daemon.port", 3993)
	v.SetDefault("daemon.debug", false)
}

func (c *Config) verify() error {
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("config: tools.timeout must be positive")
	}
	if c.Tools.Atos == "" || c.Tools.Dwarfdump == "" {
		return fmt.Errorf("config: tools.atos and tools.dwarfdump must be set")
	}
	switch c.Tools.UUIDReader {
	case "dwarfdump", "macho":
	default:
		return fmt.Errorf("config: tools.uuid_reader must be 'dwarfdump' or 'macho' (got %q)", c.Tools.UUIDReader)
	}
	if !strings.HasPrefix(c.Discovery.Extension, ".") {
		return fmt.Errorf("config: discovery.extension must start with '.' (got %q)", c.Discovery.Extension)
	}
	if c.Symbolicate.CacheSize <= 0 {
		return fmt.Errorf("config: symbolicate.cache_size must be positive")
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("config: daemon.port %d out of range", c.Daemon.Port)
	} else if c.Daemon.Host == "" {
		c.Daemon.Host = "localhost"
	}

	archives, err := utils.ExpandHome(c.Discovery.Archives)
	if err != nil {
		return fmt.Errorf("config: %v", err)
	}
	c.Discovery.Archives = archives

	if c.Discovery.Index != "" {
		index, err := utils.ExpandHome(c.Discovery.Index)
		if err != nil {
			return fmt.Errorf("config: %v", err)
		}
		c.Discovery.Index = index
	}

	return nil
}

// LoadConfig loads the configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load loads the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	var c *Config

	SetDefaults(v)

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
