package bootstrap

import (
    "fmt"
    "strings"

    "github.com/BurntSushi/toml"
)

// LoadFile decodes a TOML config file. Unknown keys are rejected so typos
// do not silently fall back to defaults. Durations are strings ("30s").
func LoadFile(path string) (Config, error) {
    var cfg Config
    md, err := toml.DecodeFile(path, &cfg)
    if err != nil { return Config{}, fmt.Errorf("bootstrap: %s: %w", path, err) }
    if und := md.Undecoded(); len(und) > 0 {
        keys := make([]string, 0, len(und))
        for _, k := range und { keys = append(keys, k.String()) }
        return Config{}, fmt.Errorf("bootstrap: %s: unknown keys: %s", path, strings.Join(keys, ", "))
    }
    return cfg, nil
}
