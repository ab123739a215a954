package demo

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownAction is returned for an action name that is not registered.
	ErrUnknownAction = errors.New("unknown action")
	// ErrTargetRequired is returned when an action has no target.
	ErrTargetRequired = errors.New("target is required")
)

// Action is a response action an analyst can trigger. Actions are acknowledged only.
type Action struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	verb        string
}

// ActionResult acknowledges an executed action.
type ActionResult struct {
	Status      string    `json:"status"`
	Action      string    `json:"action"`
	Target      string    `json:"target"`
	Message     string    `json:"message"`
	ExecutionID string    `json:"execution_id"`
	Timestamp   time.Time `json:"timestamp"`
}

var actions = map[string]Action{
	"block_ip":          {Name: "block_ip", Description: "Block IP Address", verb: "IP %s blocked at perimeter firewall"},
	"isolate_host":      {Name: "isolate_host", Description: "Isolate Host", verb: "Host %s isolated from the network"},
	"escalate_incident": {Name: "escalate_incident", Description: "Escalate Incident", verb: "Incident for %s escalated to the response team"},
	"enable_monitoring": {Name: "enable_monitoring", Description: "Enable Enhanced Monitoring", verb: "Enhanced monitoring enabled for %s"},
	"quarantine_file":   {Name: "quarantine_file", Description: "Quarantine File", verb: "File %s moved to quarantine"},
}

// Actions returns the registered actions sorted by name.
func Actions() []Action {
	list := make([]Action, 0, len(actions))
	for _, a := range actions {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Execute acknowledges action against target.
func Execute(name, target string, now time.Time) (ActionResult, error) {
	a, ok := actions[name]
	if !ok {
		return ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	if target == "" {
		return ActionResult{}, ErrTargetRequired
	}
	return ActionResult{
		Status:      "success",
		Action:      a.Name,
		Target:      target,
		Message:     fmt.Sprintf(a.verb, target),
		ExecutionID: uuid.NewString(),
		Timestamp:   now.UTC(),
	}, nil
}
