package constants

// RewardKind names a built-in reward function.
type RewardKind string

const (
	// RewardConstant pays a fixed value every round.
	RewardConstant RewardKind = "constant"

	// RewardCoordination pays 1 when all agents agree.
	RewardCoordination RewardKind = "coordination"

	// RewardColoring pays the fraction of arcs whose endpoints differ.
	RewardColoring RewardKind = "coloring"
)

// Valid returns true if the kind is a recognized value.
func (k RewardKind) Valid() bool {
	switch k {
	case RewardConstant, RewardCoordination, RewardColoring:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k RewardKind) String() string {
	return string(k)
}
