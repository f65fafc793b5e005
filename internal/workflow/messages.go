package workflow

import "time"

// MessageInterval is how long each loading message is shown.
const MessageInterval = 2500 * time.Millisecond

var (
	nearbyMessages = []string{
		"Scouting nearby options...",
		"Scouring the culinary digital landscape...",
		"Locating the restaurant entrance...",
	}

	locationMessages = []string{
		"Scouring the culinary digital landscape...",
		"Locating the restaurant entrance...",
		"Retrieving the latest menu specials...",
	}

	analysisMessages = []string{
		"Scanning ingredients for safety...",
		"Running dietary restriction checks...",
		"Consulting the AI chef...",
		"Almost ready to serve your advice...",
	}
)

// LoadingMessages returns the messages to cycle through while state is busy,
// or nil for states that are not.
func LoadingMessages(state State) []string {
	var msgs []string
	switch state {
	case StateSearchingNearby:
		msgs = nearbyMessages
	case StateLoadingMenu:
		msgs = locationMessages
	case StateAnalyzingMenu:
		msgs = analysisMessages
	default:
		return nil
	}
	return append([]string(nil), msgs...)
}

// LoadingMessage picks the message for the given elapsed time in state.
func LoadingMessage(state State, elapsed time.Duration) string {
	msgs := LoadingMessages(state)
	if len(msgs) == 0 {
		return ""
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return msgs[int(elapsed/MessageInterval)%len(msgs)]
}
