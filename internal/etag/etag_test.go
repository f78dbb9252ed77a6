package etag

import (
	"net/http"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Weak ETag",
			input: "W/\"abc123\"",
			want:  "abc123",
		},
		{
			name:  "Strong ETag",
			input: "\"abc123\"",
			want:  "abc123",
		},
		{
			name:  "Empty string",
			input: "",
			want:  "",
		},
		{
			name:  "No quotes",
			input: "abc123",
			want:  "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", `"abc"`},
		{`"abc"`, `"abc"`},
		{`W/"abc"`, `W/"abc"`},
		{"*", "*"},
		{"", ""},
		{" abc ", `"abc"`},
		{`"`, `"""`},
	}

	for _, tt := range tests {
		if got := Format(tt.input); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(`W/"abc"`, `"abc"`) {
		t.Error("weak and strong tags with the same value should be equal")
	}
	if Equal(`"abc"`, `"abd"`) {
		t.Error("different tags should not be equal")
	}
}

func TestFromPayload(t *testing.T) {
	tag, ok := FromPayload([]byte(`{"@odata.etag":"W/\"5\"","Name":"x"}`))
	if !ok || tag != `W/"5"` {
		t.Errorf("FromPayload = %q, %v", tag, ok)
	}

	if _, ok := FromPayload([]byte(`{"Name":"x"}`)); ok {
		t.Error("expected no etag without annotation")
	}
	if _, ok := FromPayload([]byte(`not json`)); ok {
		t.Error("expected no etag for invalid json")
	}
}

func TestFromResponse(t *testing.T) {
	h := http.Header{}
	h.Set("ETag", `"header"`)
	tag, ok := FromResponse(h, []byte(`{"@odata.etag":"body"}`))
	if !ok || tag != `"header"` {
		t.Errorf("header should win, got %q", tag)
	}

	tag, ok = FromResponse(http.Header{}, []byte(`{"@odata.etag":"body"}`))
	if !ok || tag != "body" {
		t.Errorf("expected body etag, got %q", tag)
	}
}
