// Package config loads CLEO's runtime configuration through a fixed
// five-layer hierarchical merge: CLI/RPC overrides, CLEO_-prefixed
// environment variables, a per-project config file, a per-user config
// file, then built-in defaults. A general-purpose config library (e.g.
// Viper) isn't used here: the merge order is fixed and small, not an
// arbitrary-format problem, so the extra indirection a generic library
// would add has nothing to buy. Grounded on cmd/factory/main.go's own
// config-from-db-fallback layering (flags override, then a stored config
// value, then a compiled-in default).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is CLEO's resolved runtime configuration.
type Config struct {
	DBPath           string `json:"dbPath"`
	ArtifactRoot     string `json:"artifactRoot"`
	RPCAddr          string `json:"rpcAddr"`
	LogLevel         string `json:"logLevel"`
	SessionBudget    int    `json:"sessionBudget"`
	RequiredGates    []string `json:"requiredGates"`
	MaxDepth         int    `json:"maxDepth"`
}

// Defaults returns CLEO's built-in configuration floor.
func Defaults() Config {
	return Config{
		DBPath:        ".cleo/cleo.db",
		ArtifactRoot:  ".cleo",
		RPCAddr:       "127.0.0.1:7417",
		LogLevel:      "info",
		SessionBudget: 100_000,
		RequiredGates: []string{"implemented", "testsPassed", "qaPassed", "cleanupDone", "securityPassed", "documented"},
		MaxDepth:      4,
	}
}

// Load resolves Config by merging, in increasing precedence: defaults,
// the per-user file (~/.cleo/config.json), the per-project file
// (./.cleo/config.json), CLEO_-prefixed environment variables, then
// overrides.
func Load(projectRoot string, overrides Config) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		mergeFile(&cfg, filepath.Join(home, ".cleo", "config.json"))
	}
	mergeFile(&cfg, filepath.Join(projectRoot, ".cleo", "config.json"))
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}
	mergeOverrides(cfg, fileCfg)
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("CLEO_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CLEO_ARTIFACT_ROOT"); v != "" {
		cfg.ArtifactRoot = v
	}
	if v := os.Getenv("CLEO_RPC_ADDR"); v != "" {
		cfg.RPCAddr = v
	}
	if v := os.Getenv("CLEO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLEO_SESSION_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionBudget = n
		}
	}
	if v := os.Getenv("CLEO_REQUIRED_GATES"); v != "" {
		cfg.RequiredGates = strings.Split(v, ",")
	}
	if v := os.Getenv("CLEO_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDepth = n
		}
	}
}

// mergeOverrides copies every non-zero-value field of src onto dst.
func mergeOverrides(dst *Config, src Config) {
	if src.DBPath != "" {
		dst.DBPath = src.DBPath
	}
	if src.ArtifactRoot != "" {
		dst.ArtifactRoot = src.ArtifactRoot
	}
	if src.RPCAddr != "" {
		dst.RPCAddr = src.RPCAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.SessionBudget != 0 {
		dst.SessionBudget = src.SessionBudget
	}
	if len(src.RequiredGates) > 0 {
		dst.RequiredGates = src.RequiredGates
	}
	if src.MaxDepth != 0 {
		dst.MaxDepth = src.MaxDepth
	}
}
