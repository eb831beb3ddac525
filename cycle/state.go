package cycle

import "fmt"

// State is the position of the controller in the projection interval.
type State int

// States of the controller.
const (
	// StateBaseYear is the first year. Its ledger comes from the base
	// source.
	StateBaseYear State = iota

	// StatePreLaunchIncrement is a year at or before the launch year, where
	// rates and controls are applied.
	StatePreLaunchIncrement

	// StatePostLaunchIncrement is a year after the launch year.
	StatePostLaunchIncrement

	// StateTerminal is reached after the horizon year.
	StateTerminal
)

var stateNames = map[State]string{
	StateBaseYear:            "BaseYear",
	StatePreLaunchIncrement:  "PreLaunchIncrement",
	StatePostLaunchIncrement: "PostLaunchIncrement",
	StateTerminal:            "Terminal",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Stage names a step of a year, reported through HookPosAfterStage.
type Stage string

// Stages of a pre-launch year, in order.
const (
	StageMilitary   Stage = "military"
	StageRates      Stage = "rates"
	StageHouseholds Stage = "households"
	StageControls   Stage = "controls"
	StageIntegerize Stage = "integerize"
	StageValidate   Stage = "validate"
	StageFlows      Stage = "flows"
	StageEmit       Stage = "emit"
)
