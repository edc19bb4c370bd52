package usecase

import "fmt"

// Fixed system and assistant texts. Clients render these verbatim, so changes
// here are user-visible.
const (
	textHandoffInvite    = "I've asked a human agent to join this conversation. Please hold on, an agent will be with you shortly."
	textHandoffCancelled = "The request for a human agent has been cancelled. I'll keep helping you from here."
	textAIResumed        = "I'm back and will continue assisting you from here."
	textSummaryMissing   = "A summary of the conversation so far is not available."
	textSummaryHeader    = "Summary of the conversation so far: "
)

func textAdminJoined(displayName string) string {
	return fmt.Sprintf("%s has joined the conversation.", displayName)
}

func textAdminLeft(displayName string) string {
	return fmt.Sprintf("%s has left the conversation.", displayName)
}

func textTimeoutTakeover(displayName string) string {
	return fmt.Sprintf("%s has been away for a while, so I'll take over from here.", displayName)
}
