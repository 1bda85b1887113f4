package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type NodeKind string

const (
	NodeTrigger   NodeKind = "trigger"
	NodeDelay     NodeKind = "delay"
	NodeCondition NodeKind = "condition"
	NodeAction    NodeKind = "action"
)

const (
	EdgeSuccess = "success"
	EdgeFailure = "failure"
)

// Graph is the node set and edge set of one automation. It is stored as a
// jsonb column on both definitions (live, editable) and executions (frozen
// copy taken at start).
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one step. Exactly one of the config pointers is set, matching Kind.
type Node struct {
	ID        string           `json:"id"`
	Kind      NodeKind         `json:"kind"`
	Delay     *DelayConfig     `json:"delay,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty"`
	Action    *ActionConfig    `json:"action,omitempty"`
}

type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

type DelayUnit string

const (
	DelaySeconds DelayUnit = "seconds"
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

type DelayConfig struct {
	Duration int       `json:"duration"`
	Unit     DelayUnit `json:"unit"`
}

type ConditionConfig struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type ActionType string

const (
	ActionSendSms                ActionType = "send_sms"
	ActionSendEmail              ActionType = "send_email"
	ActionAddTag                 ActionType = "add_tag"
	ActionUpdateOpportunityStage ActionType = "update_opportunity_stage"
	ActionCreateTask             ActionType = "create_task"
)

type ActionConfig struct {
	Type     ActionType `json:"type"`
	Template string     `json:"template,omitempty"`
	Subject  string     `json:"subject,omitempty"`
	// ToPath overrides where the recipient is resolved from in the trigger
	// data. Defaults: contact.phone (sms), contact.email (email).
	ToPath      string                 `json:"to_path,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	StageFields map[string]interface{} `json:"stage_fields,omitempty"`
	TaskTitle   string                 `json:"task_title,omitempty"`
	TaskBody    string                 `json:"task_body,omitempty"`
}

func (g Graph) Value() (driver.Value, error) {
	return json.Marshal(g)
}

func (g *Graph) Scan(value interface{}) error {
	if value == nil {
		*g = Graph{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan Graph: %v", value)
	}
	return json.Unmarshal(bytes, g)
}

func (Graph) GormDataType() string {
	return "jsonb"
}

// Node returns the node with the given id, or nil.
func (g Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// TriggerNode returns the graph's entry point, or nil.
func (g Graph) TriggerNode() *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Kind == NodeTrigger {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Successor returns the id of the node reached from nodeID along the edge
// with the given label ("" for the default edge). Empty result means the
// node is terminal on that branch.
func (g Graph) Successor(nodeID, label string) string {
	for _, edge := range g.Edges {
		if edge.From == nodeID && edge.Label == label {
			return edge.To
		}
	}
	return ""
}
