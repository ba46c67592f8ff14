package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestService_Handle(t *testing.T) {
	s := NewService(&stubSource{model: &bowModel{}})

	resp := s.Handle(context.Background(), Request{Topic: "ai", Texts: []string{"deep learning"}})
	if resp.Status != StatusSuccess || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	resp = s.Handle(context.Background(), Request{Topic: ""})
	if resp.Status != StatusError || resp.Message == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Kind != "invalid_request" {
		t.Errorf("kind = %q", resp.Kind)
	}
}

func TestResponse_MarshalJSON(t *testing.T) {
	ok, err := json.Marshal(Response{Status: StatusSuccess})
	if err != nil {
		t.Fatal(err)
	}
	if string(ok) != `{"status":"success","results":[]}` {
		t.Errorf("success JSON = %s", ok)
	}

	bad, err := json.Marshal(ErrorResponse(newError(KindModelLoadFailure, errors.New("x"), "load failed")))
	if err != nil {
		t.Fatal(err)
	}
	s := string(bad)
	if !strings.Contains(s, `"status":"error"`) || !strings.Contains(s, `"message":"load failed: x"`) {
		t.Errorf("error JSON = %s", s)
	}
	if strings.Contains(s, "results") {
		t.Errorf("error JSON should not carry results: %s", s)
	}
}

func TestRequest_decode(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"topic":"AI","texts":["a","b"]}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Topic != "AI" || len(req.Texts) != 2 {
		t.Errorf("decoded %+v", req)
	}
}

func TestKindOfAndIs(t *testing.T) {
	err := newError(KindEmbeddingRuntimeFailure, context.DeadlineExceeded, "embed")
	if !errors.Is(err, ErrEmbeddingRuntimeFailure) {
		t.Error("errors.Is should match by kind")
	}
	if errors.Is(err, ErrModelLoadFailure) {
		t.Error("errors.Is should not match a different kind")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("cause should unwrap")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors have unknown kind")
	}
}
