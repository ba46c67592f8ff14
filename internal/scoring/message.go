package scoring

import (
	"context"
	"encoding/json"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is the wire form of a scoring call.
type Request struct {
	Topic string   `json:"topic"`
	Texts []string `json:"texts"`
}

// Response is the wire form of a scoring result. Exactly one of Results
// (on success) or Message (on error) is set.
type Response struct {
	Status  string          `json:"status"`
	Results []ScoredPassage `json:"results,omitempty"`
	Message string          `json:"message,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

// Handle runs Score for req and folds the outcome into a Response.
func (s *Service) Handle(ctx context.Context, req Request) Response {
	results, err := s.Score(ctx, req.Topic, req.Texts)
	if err != nil {
		return ErrorResponse(err)
	}
	return Response{Status: StatusSuccess, Results: results}
}

// ErrorResponse builds the error form of Response for err.
func ErrorResponse(err error) Response {
	return Response{Status: StatusError, Message: err.Error(), Kind: KindOf(err).String()}
}

// MarshalJSON emits {status, results} on success, with results never null,
// and {status, message, kind} on error.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Status == StatusSuccess {
		results := r.Results
		if results == nil {
			results = []ScoredPassage{}
		}
		return json.Marshal(struct {
			Status  string          `json:"status"`
			Results []ScoredPassage `json:"results"`
		}{r.Status, results})
	}
	return json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
	}{r.Status, r.Message, r.Kind})
}
