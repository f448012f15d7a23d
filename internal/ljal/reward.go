package ljal

// RewardFunc maps a joint action vector, indexed by agent, to the shared
// reward for the round. Implementations must not retain or modify actions.
type RewardFunc func(actions []int) float64

// ConstantReward pays v regardless of the joint action.
func ConstantReward(v float64) RewardFunc {
	return func([]int) float64 { return v }
}

// CoordinationReward pays 1 when every agent chose the same action and 0
// otherwise.
func CoordinationReward() RewardFunc {
	return func(actions []int) float64 {
		for _, a := range actions {
			if a != actions[0] {
				return 0
			}
		}
		return 1
	}
}

// ColoringReward pays the fraction of arcs in g whose endpoints chose
// different actions, treating actions as colours. A graph without arcs
// always pays 1.
func ColoringReward(g Graph) RewardFunc {
	type arc struct{ from, to int }
	var arcs []arc
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			arcs = append(arcs, arc{from, to})
		}
	}
	return func(actions []int) float64 {
		if len(arcs) == 0 {
			return 1
		}
		satisfied := 0
		for _, e := range arcs {
			if actions[e.from] != actions[e.to] {
				satisfied++
			}
		}
		return float64(satisfied) / float64(len(arcs))
	}
}
