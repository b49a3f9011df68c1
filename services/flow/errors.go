package flow

import (
	"errors"
	"fmt"
)

// Configuration errors. These are fatal to the operation and never retried.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrFlowNotFound     = errors.New("flow not found")
	ErrNoStartNode      = errors.New("flow has no start node")
	ErrNodeNotFound     = errors.New("current node not found in flow")
	ErrNoNextStep       = errors.New(ErrMsgNoNextStep)
	ErrSessionCompleted = errors.New("completed sessions cannot be restarted; start a new session")
)

// ValidationError reports a response rejected by a node's validation rules.
type ValidationError struct {
	NodeID  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
}
