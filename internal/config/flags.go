package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines one flag per flag-bound setting on fs. Flag defaults
// are zero values; only flags the user changes override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, s := range settings {
		if s.flag == "" || fs.Lookup(s.flag) != nil {
			continue
		}
		switch {
		case s.str != nil:
			fs.String(s.flag, "", s.usage)
		case s.num != nil:
			fs.Int(s.flag, 0, s.usage)
		case s.bit != nil:
			fs.Bool(s.flag, false, s.usage)
		case s.list != nil:
			fs.StringArray(s.flag, nil, s.usage)
		}
	}
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet, sources map[string]ConfigSource) error {
	if fs == nil {
		return nil
	}
	for _, s := range settings {
		if s.flag == "" || fs.Lookup(s.flag) == nil || !fs.Changed(s.flag) {
			continue
		}
		switch {
		case s.str != nil:
			v, err := fs.GetString(s.flag)
			if err != nil {
				return err
			}
			*s.str(cfg) = v
		case s.num != nil:
			v, err := fs.GetInt(s.flag)
			if err != nil {
				return err
			}
			*s.num(cfg) = v
		case s.bit != nil:
			v, err := fs.GetBool(s.flag)
			if err != nil {
				return err
			}
			*s.bit(cfg) = v
		case s.list != nil:
			v, err := fs.GetStringArray(s.flag)
			if err != nil {
				return err
			}
			*s.list(cfg) = v
		}
		if sources != nil {
			sources[s.key] = SourceFlag
		}
	}
	return nil
}
