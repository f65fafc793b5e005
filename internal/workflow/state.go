// Package workflow drives a dietary lookup from restaurant discovery through
// menu retrieval and analysis to results.
package workflow

import (
	stderrors "errors"
	"fmt"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

type State string

const (
	StateIdle                 State = "idle"
	StateSearchingNearby      State = "searching_nearby"
	StateLoadingMenu          State = "loading_menu"
	StateConfirmingRestaurant State = "confirming_restaurant"
	StateAnalyzingMenu        State = "analyzing_menu"
	StateShowingResults       State = "showing_results"
)

// Busy reports whether an AI operation is in flight in this state.
func (s State) Busy() bool {
	switch s {
	case StateSearchingNearby, StateLoadingMenu, StateAnalyzingMenu:
		return true
	}
	return false
}

type Trigger string

const (
	TriggerSearchNearby      Trigger = "search_nearby"
	TriggerSelectRestaurant  Trigger = "select_restaurant"
	TriggerStartSearch       Trigger = "start_search"
	TriggerAnalyze           Trigger = "analyze"
	TriggerCaptureAndAnalyze Trigger = "capture_and_analyze"
	TriggerRestart           Trigger = "restart"
	TriggerSearchAgain       Trigger = "search_again"
	TriggerBack              Trigger = "back"
)

var (
	ErrInvalidTransition = stderrors.New("invalid transition")
	ErrStaleResponse     = stderrors.New("stale response discarded")
)

// allowedTriggers lists the triggers accepted in each state. SearchAgain is
// accepted everywhere.
var allowedTriggers = map[State]map[Trigger]struct{}{
	StateIdle: {
		TriggerSearchNearby:     {},
		TriggerSelectRestaurant: {},
		TriggerStartSearch:      {},
		TriggerSearchAgain:      {},
	},
	StateSearchingNearby: {
		TriggerSearchAgain: {},
	},
	StateLoadingMenu: {
		TriggerSearchAgain: {},
	},
	StateConfirmingRestaurant: {
		TriggerAnalyze:           {},
		TriggerCaptureAndAnalyze: {},
		TriggerSearchAgain:       {},
		TriggerBack:              {},
	},
	StateAnalyzingMenu: {
		TriggerSearchAgain: {},
	},
	StateShowingResults: {
		TriggerRestart:     {},
		TriggerSearchAgain: {},
		TriggerBack:        {},
	},
}

var allowedTransitions = map[State]map[State]struct{}{
	StateIdle: {
		StateSearchingNearby:      {},
		StateLoadingMenu:          {},
		StateConfirmingRestaurant: {},
	},
	StateSearchingNearby: {
		StateIdle: {},
	},
	StateLoadingMenu: {
		StateConfirmingRestaurant: {},
		StateIdle:                 {},
	},
	StateConfirmingRestaurant: {
		StateAnalyzingMenu: {},
		StateIdle:          {},
	},
	StateAnalyzingMenu: {
		StateShowingResults:       {},
		StateConfirmingRestaurant: {},
		StateIdle:                 {},
	},
	StateShowingResults: {
		StateIdle: {},
	},
}

func ValidateState(state State) error {
	if _, ok := allowedTransitions[state]; !ok {
		return fmt.Errorf("invalid workflow state: %q", state)
	}
	return nil
}

// ValidateTransition checks a state change. Staying in place is always valid.
func ValidateTransition(from, to State) error {
	if err := ValidateState(from); err != nil {
		return err
	}
	if err := ValidateState(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid workflow transition: %s -> %s", from, to)
	}
	return nil
}

// ValidateTrigger returns an error matching ErrInvalidTransition when trigger
// is not accepted in state.
func ValidateTrigger(state State, trigger Trigger) error {
	if _, ok := allowedTriggers[state][trigger]; ok {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidTransition,
		errors.NewInvalidTransitionError(string(state), string(trigger)))
}
