package mpv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
)

func TestCommandMarshal(t *testing.T) {
	data, err := json.Marshal(Command{Command: []any{"seek", 12, "absolute+exact"}, RequestID: 4})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := string(data)
	want := `{"command":["seek",12,"absolute+exact"],"request_id":4}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestResponseUnmarshal(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		data  string
	}{
		{`{"error":"success","data":"Some Title","request_id":1}`, true, `"Some Title"`},
		{`{"error":"success","request_id":2}`, true, ``},
		{`{"error":"property unavailable","request_id":3}`, false, ``},
	}

	for _, tt := range tests {
		var resp Response
		if err := json.Unmarshal([]byte(tt.input), &resp); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.input, err)
		}
		if resp.OK() != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.input, resp.OK(), tt.ok)
		}
		if string(resp.Data) != tt.data {
			t.Errorf("%s: data = %s, want %s", tt.input, resp.Data, tt.data)
		}
	}
}

func TestEventUnmarshal(t *testing.T) {
	input := `{"event":"property-change","id":3,"name":"media-title","data":"Vue 3 Core Concepts"}`

	var ev Event
	if err := json.Unmarshal([]byte(input), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := Event{Event: EventPropertyChange, ID: 3, Name: PropMediaTitle}
	if diff := cmp.Diff(want, ev, cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "Data"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	if got := gjson.ParseBytes(ev.Data).String(); got != "Vue 3 Core Concepts" {
		t.Errorf("data = %q, want %q", got, "Vue 3 Core Concepts")
	}
}

func TestEndFileReason(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{"event":"end-file","reason":"eof"}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Reason != "eof" {
		t.Errorf("reason = %q, want %q", ev.Reason, "eof")
	}
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{Command: "seek", Reason: "error running command"}
	if got, want := err.Error(), "mpv seek: error running command"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
