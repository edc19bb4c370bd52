package chat

// RoomState is the lifecycle state of a room: who may answer right now.
type RoomState string

const (
	StateAIActive        RoomState = "AI_ACTIVE"
	StateWaitingForAdmin RoomState = "WAITING_FOR_ADMIN"
	StateAdminActive     RoomState = "ADMIN_ACTIVE"
)

// StateEvent is a requested transition of the room state machine.
type StateEvent string

const (
	EventRequestHandoff StateEvent = "REQUEST_HANDOFF" // user asks for a human
	EventCancelHandoff  StateEvent = "CANCEL_HANDOFF"  // user cancels the request
	EventAcceptHandoff  StateEvent = "ACCEPT_HANDOFF"  // admin takes the waiting room
	EventPreemptAdmin   StateEvent = "PREEMPT_ADMIN"   // admin intervenes unprompted
	EventReturnToAI     StateEvent = "RETURN_TO_AI"    // admin releases the room
	EventIdleTimeout    StateEvent = "IDLE_TIMEOUT"    // sweeper reclaims the room
)

// transitions is the complete legal transition table. Any (state, event) pair
// absent here fails with ErrInvalidState and leaves the room untouched.
var transitions = map[RoomState]map[StateEvent]RoomState{
	StateAIActive: {
		EventRequestHandoff: StateWaitingForAdmin,
		EventPreemptAdmin:   StateAdminActive,
	},
	StateWaitingForAdmin: {
		EventCancelHandoff: StateAIActive,
		EventAcceptHandoff: StateAdminActive,
	},
	StateAdminActive: {
		EventReturnToAI:  StateAIActive,
		EventIdleTimeout: StateAIActive,
	},
}

// NextState resolves the target state for an event, or ErrInvalidState when
// the event is not legal from the current state.
func NextState(from RoomState, event StateEvent) (RoomState, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, ErrInvalidState
}

// ButtonDescriptor is the client-facing control matching a room state.
type ButtonDescriptor struct {
	State  RoomState `json:"state"`
	Text   string    `json:"buttonText"`
	Action string    `json:"buttonAction"`
}

// ButtonFor returns the handoff button the client should render in a state.
func ButtonFor(state RoomState) ButtonDescriptor {
	switch state {
	case StateWaitingForAdmin:
		return ButtonDescriptor{State: state, Text: "Cancel Request", Action: "cancel_handoff"}
	case StateAdminActive:
		return ButtonDescriptor{State: state, Text: "Request AI", Action: "request_ai"}
	case StateAIActive:
		return ButtonDescriptor{State: state, Text: "Request Human", Action: "request_handoff"}
	}
	return ButtonDescriptor{State: state, Text: "Request Human", Action: "request_handoff"}
}

// TransitionReason annotates a broadcast state change with why it happened.
type TransitionReason string

const (
	ReasonHandoffRequest   TransitionReason = "HANDOFF_REQUEST"
	ReasonHandoffCancelled TransitionReason = "HANDOFF_CANCELLED"
	ReasonHandoffAccepted  TransitionReason = "HANDOFF_ACCEPTED"
	ReasonPreempt          TransitionReason = "PREEMPT_INTERVENTION"
	ReasonHandoffToAI      TransitionReason = "HANDOFF_TO_AI"
	ReasonAdminTimeout     TransitionReason = "ADMIN_TIMEOUT"
)
