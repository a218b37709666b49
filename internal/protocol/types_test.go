package protocol

import (
	"encoding/json"
	"testing"
)

func TestContentItemShapes(t *testing.T) {
	cases := []struct {
		item ContentItem
		want string
	}{
		{Text("hi"), `{"type":"text","text":"hi"}`},
		{Image("https://example.com/a.png"), `{"type":"image","url":"https://example.com/a.png"}`},
		{Resource("scene/World"), `{"type":"resource","resourceId":"scene/World"}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.item)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.want {
			t.Fatalf("got %s want %s", b, tc.want)
		}
	}
}

func TestEnvelopesAreExclusive(t *testing.T) {
	b, err := json.Marshal(Result("abc", map[string]any{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"jsonrpc":"2.0","id":"abc","result":{}}` {
		t.Fatalf("unexpected result envelope %s", b)
	}

	b, err = json.Marshal(Failure(nil, Errorf(CodeMethodNotFound, "Unknown MCP method: %s", "foo")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"jsonrpc":"2.0","id":null,"error":{"code":-32601,"message":"Unknown MCP method: foo"}}` {
		t.Fatalf("unexpected error envelope %s", b)
	}
}

func TestNotificationDetection(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !req.IsNotification() {
		t.Fatal("null id should be a notification")
	}

	req = Request{}
	if err := json.Unmarshal([]byte(`{"id":0,"method":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.IsNotification() {
		t.Fatal("zero id is not a notification")
	}
}

func TestNewErrorKeepsMessageVerbatim(t *testing.T) {
	msg := "plain 100%"
	err := NewError(CodeInvalidParams, msg)
	if err.Message != msg {
		t.Fatalf("message rewritten: %q", err.Message)
	}
	if err.Error() != "jsonrpc error -32602: plain 100%" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestErrorfFormats(t *testing.T) {
	err := Errorf(CodePrecondition, "Transform not found at path '%s'.", "World/Nope")
	if err.Code != CodePrecondition || err.Message != "Transform not found at path 'World/Nope'." {
		t.Fatalf("unexpected error %+v", err)
	}
}
