package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CreatedAt string   `json:"createdAt"`
	Tags      []string `json:"tags"`
	Count     int      `json:"count"`
}

var sampleValue = map[string]any{"data": sample{ID: "p1", Name: "Home", CreatedAt: "2024-03-04T05:06:07.008Z", Tags: []string{}, Count: 2}}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleValue, "", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `{"data":{"id":"p1","name":"Home","createdAt":"2024-03-04T05:06:07.008Z","tags":[],"count":2}}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected json:\n%s", buf.String())
	}
}

func TestWrite_EDNUsesKebabKeywords(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleValue, "edn", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `{:data {:count 2 :created-at "2024-03-04T05:06:07.008Z" :id "p1" :name "Home" :tags []}}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected edn:\n%s", buf.String())
	}
}

func TestWrite_EDNPretty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []any{1, "a"}, "edn", true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "[\n  1\n  \"a\"\n]\n" {
		t.Fatalf("unexpected pretty edn: %q", buf.String())
	}
}

func TestWrite_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleValue, "yaml", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"data:\n", "  createdAt: ", "  name: Home\n", "  tags: []\n", "  count: 2\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out)
		}
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, 1, "xml", false)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
