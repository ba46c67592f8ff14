package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/semlight/internal/page"
	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/topics"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

type highlightRequest struct {
	Topic string `json:"topic"`
	HTML  string `json:"html"`
	Clear bool   `json:"clear,omitempty"`
}

type highlightResponse struct {
	Status string `json:"status"`
	*page.Result
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoring.Request
	if err := s.decode(w, r, &req); err != nil {
		s.respondScoreError(w, invalidBody(err))
		return
	}
	s.logger.Debug("score request", zap.String("topic", req.Topic), zap.Int("passages", len(req.Texts)))
	results, err := s.service.Score(r.Context(), req.Topic, req.Texts)
	if err != nil {
		s.logger.Warn("score failed", zap.Stringer("kind", scoring.KindOf(err)), zap.Error(err))
		s.respondScoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, scoring.Response{Status: scoring.StatusSuccess, Results: results})
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondScoreError(w, invalidBody(err))
		return
	}
	if req.Clear {
		out, n, err := s.highlighter.Clear(strings.NewReader(req.HTML))
		if err != nil {
			s.respondScoreError(w, invalidBody(err))
			return
		}
		s.respondJSON(w, http.StatusOK, highlightResponse{
			Status: scoring.StatusSuccess,
			Result: &page.Result{HTML: out, Passages: []page.ScoredPassage{}, Cleared: n},
		})
		return
	}
	s.logger.Debug("highlight request", zap.String("topic", req.Topic), zap.Int("html_bytes", len(req.HTML)))
	res, err := s.highlighter.Highlight(r.Context(), strings.NewReader(req.HTML), req.Topic)
	if err != nil {
		s.logger.Warn("highlight failed", zap.Error(err))
		s.respondScoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, highlightResponse{Status: scoring.StatusSuccess, Result: res})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "topic catalog not enabled")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		names, err := s.catalog.Names(r.Context())
		if err != nil {
			s.logger.Error("list topics failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if names == nil {
			names = []string{}
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"topics": names})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	} else if s.config != nil {
		limit = s.config.Topics.SearchLimit
	}
	matches, err := s.catalog.Search(q, limit)
	if err != nil {
		s.logger.Error("topic search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "matches": matches})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "topic catalog not enabled")
		return
	}
	name := chi.URLParam(r, "name")
	t, err := s.catalog.Get(r.Context(), name)
	if errors.Is(err, topics.ErrTopicNotFound) {
		s.respondError(w, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		s.logger.Error("get topic failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if s.models != nil {
		resp["model_loaded"] = s.models.Loaded()
		resp["model_load_attempts"] = s.models.Attempts()
	}
	if s.catalog != nil {
		n, err := s.catalog.Count(r.Context())
		if err != nil {
			s.logger.Error("status: count topics failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["topics"] = n
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"backend":             s.config.Embedding.Backend,
			"model_name":          s.config.Embedding.ModelName,
			"dimensions":          s.config.Embedding.Dimensions,
			"highlight_threshold": s.config.Highlight.ThresholdOrDefault(),
			"max_passages":        s.config.Scoring.MaxPassages,
			"topics_path":         s.config.Storage.TopicsPath,
		}
		paths := append(utils.SQLiteFiles(s.config.Storage.DatabasePath), s.config.Storage.TopicsPath)
		if n, err := utils.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// invalidBody reports a malformed request in the scoring error shape.
func invalidBody(err error) error {
	return &scoring.Error{Kind: scoring.KindInvalidRequest, Message: "invalid request body", Err: err}
}

// respondScoreError writes err in the scoring response shape. Deadlines map
// to 504 whatever kind carries them.
func (s *Server) respondScoreError(w http.ResponseWriter, err error) {
	resp := scoring.ErrorResponse(err)
	status := statusForKind(resp.Kind)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	s.respondJSON(w, status, resp)
}

// recoverer turns a handler panic into a 500 in the scoring error shape. A
// *scoring.Error panic keeps its kind; anything else is reported as unknown.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("handler panic",
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Stack("stack"))
			serr, ok := rec.(*scoring.Error)
			if !ok {
				serr = &scoring.Error{Message: "internal server error"}
			}
			s.respondJSON(w, http.StatusInternalServerError, scoring.ErrorResponse(serr))
		}()
		next.ServeHTTP(w, r)
	})
}

func statusForKind(kind string) int {
	switch kind {
	case scoring.KindInvalidRequest.String():
		return http.StatusBadRequest
	case scoring.KindModelLoadFailure.String():
		return http.StatusServiceUnavailable
	case scoring.KindCanceled.String():
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
