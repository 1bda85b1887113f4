package model

import "testing"

func testGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "start", Kind: NodeTrigger},
			{ID: "check", Kind: NodeCondition, Condition: &ConditionConfig{Field: "contact.source", Operator: "equals", Value: "web"}},
			{ID: "notify", Kind: NodeAction, Action: &ActionConfig{Type: ActionSendSms, Template: "hi"}},
		},
		Edges: []Edge{
			{From: "start", To: "check"},
			{From: "check", To: "notify", Label: EdgeSuccess},
		},
	}
}

func TestGraphValueAndScan(t *testing.T) {
	original := testGraph()

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var scanned Graph
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if len(scanned.Nodes) != 3 || len(scanned.Edges) != 2 {
		t.Fatalf("expected 3 nodes and 2 edges, got %d and %d", len(scanned.Nodes), len(scanned.Edges))
	}
	if scanned.Node("check").Condition == nil {
		t.Fatal("expected condition config to survive the round trip")
	}
}

func TestGraphTriggerNode(t *testing.T) {
	g := testGraph()

	trigger := g.TriggerNode()
	if trigger == nil || trigger.ID != "start" {
		t.Fatalf("expected trigger node start, got %+v", trigger)
	}

	empty := Graph{}
	if empty.TriggerNode() != nil {
		t.Fatal("expected nil trigger node for empty graph")
	}
}

func TestGraphSuccessor(t *testing.T) {
	g := testGraph()

	if next := g.Successor("start", ""); next != "check" {
		t.Fatalf("expected successor check, got %q", next)
	}
	if next := g.Successor("check", EdgeSuccess); next != "notify" {
		t.Fatalf("expected successor notify, got %q", next)
	}
	if next := g.Successor("check", EdgeFailure); next != "" {
		t.Fatalf("expected no failure successor, got %q", next)
	}
	if next := g.Successor("notify", ""); next != "" {
		t.Fatalf("expected notify to be terminal, got %q", next)
	}
}

func TestLegacyAutomationFor(t *testing.T) {
	settings := &TenantSettings{
		LegacyAutomations: JSONB{
			"contact.created": map[string]interface{}{
				"enabled":     true,
				"action_type": "send_sms",
				"template":    "welcome {{contact.first_name}}",
			},
		},
	}

	legacy := settings.LegacyAutomationFor(TriggerContactCreated)
	if legacy == nil {
		t.Fatal("expected legacy automation for contact.created")
	}
	if !legacy.Enabled || legacy.ActionType != ActionSendSms {
		t.Fatalf("unexpected legacy automation: %+v", legacy)
	}

	if settings.LegacyAutomationFor(TriggerCallMissed) != nil {
		t.Fatal("expected no legacy automation for call.missed")
	}
}

func TestTruncateError(t *testing.T) {
	short := "boom"
	if got := TruncateError(short); got != short {
		t.Fatalf("expected %q, got %q", short, got)
	}

	long := make([]byte, ErrorMessageLimit+100)
	for i := range long {
		long[i] = 'x'
	}
	if got := TruncateError(string(long)); len(got) != ErrorMessageLimit {
		t.Fatalf("expected %d chars, got %d", ErrorMessageLimit, len(got))
	}
}
