package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLanding(t *testing.T) {
	var buf bytes.Buffer
	err := Landing(LandingParams{
		Title:   "CSV Genius API",
		Message: "CSV Genius API is live",
		Routes:  []string{"POST /filter-csv"},
	}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"<title>CSV Genius API</title>", "<h1>CSV Genius API is live</h1>", "<code>POST /filter-csv</code>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLanding_EscapesInput(t *testing.T) {
	var buf bytes.Buffer
	err := Landing(LandingParams{Message: "<script>alert(1)</script>"}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Errorf("message was not escaped: %s", buf.String())
	}
	if strings.Contains(buf.String(), "<ul>") {
		t.Error("empty route list should not render")
	}
}
