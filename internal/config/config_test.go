package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Tools.Atos != "atos" || c.Tools.Dwarfdump != "dwarfdump" {
		t.Errorf("tools = %+v", c.Tools)
	}
	if c.Tools.UUIDReader != "dwarfdump" && c.Tools.UUIDReader != "macho" {
		t.Errorf("uuid reader = %q", c.Tools.UUIDReader)
	}
	if c.Tools.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", c.Tools.Timeout)
	}
	if c.Discovery.Extension != ".dSYM" {
		t.Errorf("extension = %q", c.Discovery.Extension)
	}
	if strings.HasPrefix(c.Discovery.Archives, "~") {
		t.Errorf("archives not expanded: %q", c.Discovery.Archives)
	}
	if !reflect.DeepEqual(c.Symbolicate.SystemPrefixes, crashlog.DefaultSystemPrefixes) {
		t.Errorf("system prefixes = %v", c.Symbolicate.SystemPrefixes)
	}
	if c.Daemon.Port != 3993 || c.Daemon.Host != "localhost" {
		t.Errorf("daemon = %+v", c.Daemon)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `tools:
  atos: /usr/bin/atos
  timeout: 5s
discovery:
  archives: /tmp/archives
  exclude:
    - "**/Products/**"
symbolicate:
  parallel: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Tools.Atos != "/usr/bin/atos" || c.Tools.Timeout != 5*time.Second {
		t.Errorf("tools = %+v", c.Tools)
	}
	if c.Discovery.Archives != "/tmp/archives" {
		t.Errorf("archives = %q", c.Discovery.Archives)
	}
	if !reflect.DeepEqual(c.Discovery.Exclude, []string{"**/Products/**"}) {
		t.Errorf("exclude = %v", c.Discovery.Exclude)
	}
	if c.Symbolicate.Parallel {
		t.Error("parallel should be false")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{name: "bad extension", key: "discovery.extension", val: "dSYM"},
		{name: "zero timeout", key: "tools.timeout", val: "0s"},
		{name: "bad port", key: "daemon.port", val: 70000},
		{name: "bad cache", key: "symbolicate.cache_size", val: 0},
		{name: "bad uuid reader", key: "tools.uuid_reader", val: "otool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if _, err := Load(v); err == nil {
				t.Errorf("Load() expected error for %s=%v", tt.key, tt.val)
			}
		})
	}
}
