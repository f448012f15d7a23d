// Package constants provides named defaults shared by the ljal driver,
// configuration and CLI.
package constants

// Experiment defaults
const (
	// DefaultAgents is the agent count of the default graph.
	DefaultAgents = 5

	// DefaultRounds is the number of learning rounds per trial.
	DefaultRounds = 200

	// DefaultTrials is the number of independent trials averaged per experiment.
	DefaultTrials = 20

	// DefaultSeed seeds trial 0; trial i uses DefaultSeed+i.
	DefaultSeed = 1

	// ProgressChunk is the number of rounds a trial runs between
	// cancellation checks.
	ProgressChunk = 256
)

// Reward defaults
const (
	// DefaultRewardValue is the payout of the constant reward.
	DefaultRewardValue = 1.0
)

// Temperature defaults
const (
	// DefaultTemperature is the starting Boltzmann temperature.
	DefaultTemperature = 1.0

	// DefaultTemperatureFloor matches the selector's own clamp.
	DefaultTemperatureFloor = 0.3
)

// Storage defaults
const (
	// DefaultStoreDir holds the run database and round traces, relative to
	// the working directory.
	DefaultStoreDir = ".ljal"

	// DefaultBackupKeep is how many backups retention keeps by default.
	DefaultBackupKeep = 10

	// ConfigDirName is the per-user configuration directory under $HOME.
	ConfigDirName = ".ljal"

	// ConfigFileName is the configuration file inside ConfigDirName.
	ConfigFileName = "config.yaml"
)
