// Package config provides unified configuration loading for ljal.
// It supports loading from YAML files and environment variables, and builds
// the graph, learner parameters, reward and temperature schedule an
// experiment runs with.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/IrisYanfGuo/exam/internal/backup"
	"github.com/IrisYanfGuo/exam/internal/constants"
	"github.com/IrisYanfGuo/exam/internal/graph"
	"github.com/IrisYanfGuo/exam/internal/ljal"
	"gopkg.in/yaml.v3"
)

// Config contains all ljal configuration settings.
type Config struct {
	// Graph describes the agent dependency graph.
	Graph GraphConfig `json:"graph" yaml:"graph"`

	// Learner contains the learning parameters shared by all agents.
	Learner LearnerConfig `json:"learner" yaml:"learner"`

	// Reward selects the shared reward function.
	Reward RewardConfig `json:"reward" yaml:"reward"`

	// Temperature configures the Boltzmann temperature schedule.
	Temperature TemperatureConfig `json:"temperature" yaml:"temperature"`

	// Experiment contains Monte-Carlo run settings.
	Experiment ExperimentConfig `json:"experiment" yaml:"experiment"`

	// Logging contains settings for operational logging and round traces.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures where runs and traces are written.
	Store StoreConfig `json:"store" yaml:"store"`

	// Backup configures run store backups.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// GraphConfig lists the agents and their dependency arcs.
// Arcs are [from, to] pairs: from conditions on to's action.
type GraphConfig struct {
	Agents int      `json:"agents" yaml:"agents"`
	Arcs   [][2]int `json:"arcs" yaml:"arcs,flow"`
}

// LearnerConfig mirrors ljal.Config.
type LearnerConfig struct {
	Actions    int     `json:"actions" yaml:"actions"`
	Alpha      float64 `json:"alpha" yaml:"alpha"`
	Optimistic float64 `json:"optimistic" yaml:"optimistic"`

	// EVMode is "visit-weighted" (default) or "marginal".
	EVMode string `json:"ev_mode" yaml:"ev_mode"`
}

// RewardConfig selects a built-in reward.
type RewardConfig struct {
	// Kind is "constant", "coordination" or "coloring".
	Kind string `json:"kind" yaml:"kind"`

	// Value is the payout of the constant reward.
	Value float64 `json:"value" yaml:"value"`
}

// TemperatureConfig describes an exponential annealing schedule.
// Decay 0 keeps the temperature constant at Start.
type TemperatureConfig struct {
	Start float64 `json:"start" yaml:"start"`
	Decay float64 `json:"decay" yaml:"decay"`
	Floor float64 `json:"floor" yaml:"floor"`
}

// ExperimentConfig controls how many learners run and for how long.
type ExperimentConfig struct {
	Rounds int    `json:"rounds" yaml:"rounds"`
	Trials int    `json:"trials" yaml:"trials"`
	Seed   uint64 `json:"seed" yaml:"seed"`

	// Parallelism bounds concurrent trials; 0 uses GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// LoggingConfig configures ljal's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the round trace in <store.dir>/rounds.jsonl.
	// "trace" additionally logs every round to stderr.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures the run store location.
type StoreConfig struct {
	// Dir holds ljal.db and rounds.jsonl. Supports ${VAR} expansion.
	Dir string `json:"dir" yaml:"dir"`
}

// BackupConfig configures backup retention.
type BackupConfig struct {
	Retention RetentionConfig `json:"retention" yaml:"retention"`
}

// RetentionConfig bounds how many backups are kept after each backup.
// A backup is kept only if it satisfies every configured limit.
type RetentionConfig struct {
	// MaxCount keeps the N newest backups; 0 means no count limit.
	MaxCount int `json:"max_count" yaml:"max_count"`

	// MaxAge removes backups older than this ("30d", "2w", "720h").
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Default returns a Config with sensible defaults: the five-agent graph in
// which agent 1 depends on agents 2 and 3.
func Default() *Config {
	lc := ljal.DefaultConfig()
	return &Config{
		Graph: GraphConfig{
			Agents: constants.DefaultAgents,
			Arcs:   [][2]int{{1, 2}, {1, 3}},
		},
		Learner: LearnerConfig{
			Actions:    lc.Actions,
			Alpha:      lc.Alpha,
			Optimistic: lc.Optimistic,
			EVMode:     string(lc.EVMode),
		},
		Reward: RewardConfig{
			Kind:  string(constants.RewardConstant),
			Value: constants.DefaultRewardValue,
		},
		Temperature: TemperatureConfig{
			Start: constants.DefaultTemperature,
			Decay: 0,
			Floor: constants.DefaultTemperatureFloor,
		},
		Experiment: ExperimentConfig{
			Rounds: constants.DefaultRounds,
			Trials: constants.DefaultTrials,
			Seed:   constants.DefaultSeed,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Dir: constants.DefaultStoreDir,
		},
		Backup: BackupConfig{
			Retention: RetentionConfig{
				MaxCount: constants.DefaultBackupKeep,
			},
		},
	}
}

// DefaultPath returns ~/.ljal/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.ConfigDirName, constants.ConfigFileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.ljal/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	configPath, err := DefaultPath()
	if err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads path if non-empty, otherwise falls back to Load.
// Environment overrides apply in both cases.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Fields missing from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Dir = expandEnvVars(config.Store.Dir)

	return config, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Graph.Agents < 1 {
		return fmt.Errorf("graph.agents must be at least 1, got %d", c.Graph.Agents)
	}
	if _, err := c.BuildGraph(); err != nil {
		return err
	}

	if err := c.LearnerConfig().Validate(); err != nil {
		return fmt.Errorf("learner: %w", err)
	}

	if !constants.RewardKind(c.Reward.Kind).Valid() {
		return fmt.Errorf("invalid reward kind: %s (valid: constant, coordination, coloring)", c.Reward.Kind)
	}

	if c.Temperature.Start <= 0 {
		return fmt.Errorf("temperature.start must be positive, got %v", c.Temperature.Start)
	}
	if c.Temperature.Decay < 0 || c.Temperature.Decay >= 1 {
		return fmt.Errorf("temperature.decay must be in [0, 1), got %v", c.Temperature.Decay)
	}
	if c.Temperature.Floor < 0 {
		return fmt.Errorf("temperature.floor must be non-negative, got %v", c.Temperature.Floor)
	}

	if c.Experiment.Rounds < 1 {
		return fmt.Errorf("experiment.rounds must be at least 1, got %d", c.Experiment.Rounds)
	}
	if c.Experiment.Trials < 1 {
		return fmt.Errorf("experiment.trials must be at least 1, got %d", c.Experiment.Trials)
	}
	if c.Experiment.Parallelism < 0 {
		return fmt.Errorf("experiment.parallelism must be non-negative, got %d", c.Experiment.Parallelism)
	}

	if c.Backup.Retention.MaxCount < 0 {
		return fmt.Errorf("backup.retention.max_count must be non-negative, got %d", c.Backup.Retention.MaxCount)
	}
	if c.Backup.Retention.MaxAge != "" {
		if _, err := backup.ParseDuration(c.Backup.Retention.MaxAge); err != nil {
			return fmt.Errorf("backup.retention.max_age: %w", err)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// BuildGraph constructs the dependency graph from Graph.
func (c *Config) BuildGraph() (*graph.Graph, error) {
	arcs := make([]graph.Arc, len(c.Graph.Arcs))
	for i, a := range c.Graph.Arcs {
		arcs[i] = graph.Arc{From: a[0], To: a[1]}
	}
	g, err := graph.FromArcs(c.Graph.Agents, arcs)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return g, nil
}

// LearnerConfig converts Learner to ljal.Config.
func (c *Config) LearnerConfig() ljal.Config {
	return ljal.Config{
		Actions:    c.Learner.Actions,
		Alpha:      c.Learner.Alpha,
		Optimistic: c.Learner.Optimistic,
		EVMode:     ljal.EVMode(c.Learner.EVMode),
	}
}

// RewardFunc builds the configured reward for g.
func (c *Config) RewardFunc(g ljal.Graph) ljal.RewardFunc {
	switch constants.RewardKind(c.Reward.Kind) {
	case constants.RewardCoordination:
		return ljal.CoordinationReward()
	case constants.RewardColoring:
		return ljal.ColoringReward(g)
	default:
		return ljal.ConstantReward(c.Reward.Value)
	}
}

// TemperatureFunc builds the configured temperature schedule.
func (c *Config) TemperatureFunc() ljal.TemperatureFunc {
	if c.Temperature.Decay == 0 {
		return ljal.ConstantTemperature(c.Temperature.Start)
	}
	return ljal.ExponentialTemperature(c.Temperature.Start, c.Temperature.Decay, c.Temperature.Floor)
}

// RetentionPolicy builds the backup retention policy. With no limits
// configured every backup is kept.
func (c *Config) RetentionPolicy() backup.RetentionPolicy {
	var policies []backup.RetentionPolicy

	if c.Backup.Retention.MaxCount > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: c.Backup.Retention.MaxCount})
	}
	if c.Backup.Retention.MaxAge != "" {
		if d, err := backup.ParseDuration(c.Backup.Retention.MaxAge); err == nil {
			policies = append(policies, &backup.AgePolicy{MaxAge: d})
		}
	}

	return &backup.AllPolicy{Policies: policies}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LJAL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("LJAL_EV_MODE"); v != "" {
		config.Learner.EVMode = v
	}

	if v := os.Getenv("LJAL_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Experiment.Seed = n
		}
	}

	if v := os.Getenv("LJAL_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Experiment.Rounds = n
		}
	}

	if v := os.Getenv("LJAL_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Experiment.Trials = n
		}
	}

	if v := os.Getenv("LJAL_STORE_DIR"); v != "" {
		config.Store.Dir = expandEnvVars(v)
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
