package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/topics"
)

var sampleReport = ScoreReport{
	Topic:     "space",
	Threshold: 0.3,
	Results: []scoring.ScoredPassage{
		{Text: "Rockets  reach\norbit", Score: 0.8123},
		{Text: "Soup recipe", Score: 0.05},
	},
}

func TestWriteScores_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScores(&buf, sampleReport, OutputJSON); err != nil {
		t.Fatalf("WriteScores(json): %v", err)
	}
	var decoded ScoreReport
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Topic != "space" || len(decoded.Results) != 2 || decoded.Results[0].Score != 0.8123 {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	_ = WriteScores(&buf, ScoreReport{Topic: "x"}, OutputJSON)
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty results should encode as []: %s", buf.String())
	}
}

func TestWriteScores_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScores(&buf, sampleReport, OutputCompact); err != nil {
		t.Fatal(err)
	}
	want := "0.8123\tRockets reach orbit\n0.0500\tSoup recipe\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteScores_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteScores(&buf, sampleReport, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 passages, 1 at or above 0.30") {
		t.Errorf("missing summary:\n%s", out)
	}
	if !strings.Contains(out, "* [1] 0.8123  Rockets reach orbit") {
		t.Errorf("missing flagged line:\n%s", out)
	}
	if !strings.Contains(out, "  [2] 0.0500  Soup recipe") {
		t.Errorf("missing unflagged line:\n%s", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "JSON": OutputJSON, "compact": OutputCompact} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteMatchesAndTopics(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteMatches(&buf, "bio", nil, OutputText)
	if !strings.Contains(buf.String(), `No topics match "bio"`) {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	_ = WriteMatches(&buf, "bio", []topics.Match{{Name: "Biology", Distance: 0}}, OutputCompact)
	if buf.String() != "Biology\n" {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	list := []*topics.Topic{{Name: "Biology", Keywords: []string{"cell", "gene"}}}
	_ = WriteTopics(&buf, list, OutputText)
	if !strings.Contains(buf.String(), "Biology (2 keywords)\n  cell, gene") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	_ = WriteTopics(&buf, list, OutputJSON)
	parsed, err := topics.ParseJSON(&buf)
	if err != nil || len(parsed) != 1 || parsed[0].Name != "Biology" {
		t.Errorf("json topics = %+v, %v", parsed, err)
	}
}
