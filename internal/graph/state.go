// Package graph implements the reminder state-machine nodes that bridge
// agent decision turns to the durable reminder store, together with the
// pending-action queue that carries not-yet-applied actions between turns.
package graph

import "fmt"

// NodeName identifies a graph node routing target.
type NodeName string

// The closed set of routing targets. The cancel node may route to the
// create node; the create node never routes back.
const (
	NodeCancelReminder         NodeName = "cancel_reminder_node"
	NodeCreateReminder         NodeName = "create_reminder_node"
	NodeResponseAgent          NodeName = "response_agent"
	NodeTriageInterruptHandler NodeName = "triage_interrupt_handler"
	NodeEnd                    NodeName = "__end__"
)

// StateKeyNextNode is the state key carrying the node to route to once the
// pending reminder actions have drained.
const StateKeyNextNode = "reminder_next_node"

// DefaultThreadKey is the sentinel queue key used when no thread id can be
// resolved from the state.
const DefaultThreadKey = "__default__"

// State is the opaque graph state mapping passed into nodes. It carries at
// least an email_input mapping (with id/thread_id/gmail_id) or a top-level
// thread_id, plus the optional reminder_next_node pointer.
type State map[string]any

// Command is the routing directive returned by a node: where to go next and
// which state keys to update. A nil value in Update clears the key.
type Command struct {
	Goto   NodeName
	Update map[string]any
}

// stateString renders a state value the way a loosely typed graph runtime
// would: strings pass through, nil is empty, everything else is formatted.
func stateString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// ThreadKey derives the queue key for a state. Precedence, first non-empty
// wins:
//
//  1. email_input.id
//  2. email_input.thread_id
//  3. email_input.gmail_id
//  4. top-level thread_id
//
// Falls back to DefaultThreadKey when none are present.
func ThreadKey(state State) string {
	emailInput, _ := state["email_input"].(map[string]any)

	for _, field := range []string{"id", "thread_id", "gmail_id"} {
		if v := stateString(emailInput[field]); v != "" {
			return v
		}
	}

	if v := stateString(state["thread_id"]); v != "" {
		return v
	}

	return DefaultThreadKey
}

// nextNodeFromState reads the recorded reminder_next_node from the state,
// if present.
func nextNodeFromState(state State) NodeName {
	return NodeName(stateString(state[StateKeyNextNode]))
}
