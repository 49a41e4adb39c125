package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// fileConfig maps config file keys onto RuntimeConfig fields. Nil means the
// key was absent and the lower layer is kept.
type fileConfig struct {
	Socket   *string `toml:"socket" yaml:"socket"`
	SAP      *string `toml:"sap" yaml:"sap"`
	ARFCN    *int64  `toml:"arfcn" yaml:"arfcn"`
	GSMTapIP *string `toml:"gsmtap_ip" yaml:"gsmtap_ip"`
	VTYPort  *int64  `toml:"vty_port" yaml:"vty_port"`
	Debug    *string `toml:"debug" yaml:"debug"`
	App      *string `toml:"app" yaml:"app"`
	LogFile  *string `toml:"log_file" yaml:"log_file"`
}

// LoadFile overlays the config file at path onto base. The format follows
// the extension: .toml, or .yaml/.yml.
func LoadFile(path string, base RuntimeConfig) (RuntimeConfig, error) {
	raw, err := decodeFile(path)
	if err != nil {
		return RuntimeConfig{}, err
	}
	return raw.apply(base)
}

func decodeFile(path string) (fileConfig, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fileConfig{}, fmt.Errorf("%w: load %s: %v", ErrConfigFile, path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fileConfig{}, fmt.Errorf("%w: %s: unknown keys %v", ErrConfigFile, path, undecoded)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("%w: load %s: %v", ErrConfigFile, path, err)
		}
		if err := yaml.UnmarshalStrict(data, &raw); err != nil {
			return fileConfig{}, fmt.Errorf("%w: parse %s: %v", ErrConfigFile, path, err)
		}
	default:
		return fileConfig{}, fmt.Errorf("%w: unsupported format %q", ErrConfigFile, filepath.Ext(path))
	}
	return raw, nil
}

func (raw fileConfig) apply(cfg RuntimeConfig) (RuntimeConfig, error) {
	if raw.Socket != nil {
		cfg.LinkSocketPath = strings.TrimSpace(*raw.Socket)
	}
	if raw.SAP != nil {
		cfg.SAPSocketPath = strings.TrimSpace(*raw.SAP)
	}
	if raw.ARFCN != nil {
		arfcn, err := validateARFCN(*raw.ARFCN)
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.ARFCN = arfcn
	}
	if raw.GSMTapIP != nil {
		addr, err := ParseCaptureAddr(*raw.GSMTapIP)
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.CaptureAddr = addr
	}
	if raw.VTYPort != nil {
		port, err := validatePort(*raw.VTYPort)
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.VTYPort = port
	}
	if raw.Debug != nil {
		cfg.DebugMask = *raw.Debug
	}
	if raw.App != nil {
		cfg.App = strings.TrimSpace(*raw.App)
	}
	if raw.LogFile != nil {
		cfg.LogFile = strings.TrimSpace(*raw.LogFile)
	}
	return cfg, nil
}
