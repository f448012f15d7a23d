package constants

import "testing"

func TestRewardKind_Valid(t *testing.T) {
	tests := []struct {
		name string
		kind RewardKind
		want bool
	}{
		{
			name: "constant is valid",
			kind: RewardConstant,
			want: true,
		},
		{
			name: "coordination is valid",
			kind: RewardCoordination,
			want: true,
		},
		{
			name: "coloring is valid",
			kind: RewardColoring,
			want: true,
		},
		{
			name: "empty string is invalid",
			kind: RewardKind(""),
			want: false,
		},
		{
			name: "CONSTANT uppercase is invalid",
			kind: RewardKind("CONSTANT"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("RewardKind.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewardKind_String(t *testing.T) {
	if got := RewardColoring.String(); got != "coloring" {
		t.Errorf("RewardColoring.String() = %q, want %q", got, "coloring")
	}
}
