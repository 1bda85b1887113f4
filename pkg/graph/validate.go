package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/relaycrm/relaycrm/pkg/model"
)

// ErrInvalidGraph wraps every structural validation failure. Validation runs
// at publish time; a published graph is assumed valid at run time.
var ErrInvalidGraph = errors.New("invalid graph")

// Validate checks the structural rules a graph must satisfy before it can be
// published: exactly one trigger node as the sole entry point, every edge
// referencing existing nodes, kind-specific config present, condition nodes
// carrying only success/failure labeled edges, and every other kind at most
// one unlabeled outgoing edge.
func Validate(g model.Graph) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: graph has no nodes", ErrInvalidGraph)
	}

	nodesByID := make(map[string]*model.Node, len(g.Nodes))
	triggers := 0
	for i := range g.Nodes {
		node := &g.Nodes[i]
		if node.ID == "" {
			return fmt.Errorf("%w: node missing id", ErrInvalidGraph)
		}
		if _, exists := nodesByID[node.ID]; exists {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidGraph, node.ID)
		}
		nodesByID[node.ID] = node

		switch node.Kind {
		case model.NodeTrigger:
			triggers++
		case model.NodeDelay:
			if node.Delay == nil || node.Delay.Duration <= 0 {
				return fmt.Errorf("%w: delay node %s missing duration", ErrInvalidGraph, node.ID)
			}
			if !validDelayUnit(node.Delay.Unit) {
				return fmt.Errorf("%w: delay node %s has unknown unit %q", ErrInvalidGraph, node.ID, node.Delay.Unit)
			}
		case model.NodeCondition:
			if node.Condition == nil || node.Condition.Field == "" || node.Condition.Operator == "" {
				return fmt.Errorf("%w: condition node %s missing field or operator", ErrInvalidGraph, node.ID)
			}
		case model.NodeAction:
			if node.Action == nil || node.Action.Type == "" {
				return fmt.Errorf("%w: action node %s missing action type", ErrInvalidGraph, node.ID)
			}
		default:
			return fmt.Errorf("%w: node %s has unknown kind %q", ErrInvalidGraph, node.ID, node.Kind)
		}
	}

	if triggers != 1 {
		return fmt.Errorf("%w: expected exactly one trigger node, found %d", ErrInvalidGraph, triggers)
	}

	outgoing := make(map[string][]model.Edge)
	for _, edge := range g.Edges {
		from, ok := nodesByID[edge.From]
		if !ok {
			return fmt.Errorf("%w: edge references unknown node %s", ErrInvalidGraph, edge.From)
		}
		if _, ok := nodesByID[edge.To]; !ok {
			return fmt.Errorf("%w: edge references unknown node %s", ErrInvalidGraph, edge.To)
		}

		if from.Kind == model.NodeCondition {
			if edge.Label != model.EdgeSuccess && edge.Label != model.EdgeFailure {
				return fmt.Errorf("%w: condition edge from %s must be labeled success or failure", ErrInvalidGraph, edge.From)
			}
		} else if edge.Label != "" {
			return fmt.Errorf("%w: edge from %s must not carry a label", ErrInvalidGraph, edge.From)
		}

		for _, existing := range outgoing[edge.From] {
			if existing.Label == edge.Label {
				return fmt.Errorf("%w: node %s has duplicate outgoing edge %q", ErrInvalidGraph, edge.From, edge.Label)
			}
		}
		outgoing[edge.From] = append(outgoing[edge.From], edge)
	}

	return nil
}

func validDelayUnit(unit model.DelayUnit) bool {
	switch unit {
	case model.DelaySeconds, model.DelayMinutes, model.DelayHours, model.DelayDays:
		return true
	default:
		return false
	}
}

// DelayDuration converts a delay config into a concrete duration.
func DelayDuration(cfg model.DelayConfig) time.Duration {
	base := time.Duration(cfg.Duration)
	switch cfg.Unit {
	case model.DelayMinutes:
		return base * time.Minute
	case model.DelayHours:
		return base * time.Hour
	case model.DelayDays:
		return base * 24 * time.Hour
	default:
		return base * time.Second
	}
}
