package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNew_StampsIdentityAndTime(t *testing.T) {
	event := New("ticket", "ticket:40112", "classified", "")
	if event.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("expected non-zero event id")
	}
	if event.At.IsZero() {
		t.Fatalf("expected timestamp")
	}
	if event.EntityKey != "ticket:40112" || event.State != "classified" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestEvent_JSONShape(t *testing.T) {
	event := New("email", "email:MSG-1", "auto_sent", "reply dispatched")
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "entity_kind", "entity_key", "state", "detail", "at"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing %q in %s", key, raw)
		}
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), New("ticket", "ticket:1", "fetched", "")); err != nil {
		t.Fatalf("noop publish should not fail: %v", err)
	}
}
