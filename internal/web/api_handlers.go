package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/branches"
	"github.com/joestump/refselect/internal/gitref"
	"github.com/joestump/refselect/internal/plugin"
	"github.com/joestump/refselect/internal/report"
)

// maxBodyBytes caps request bodies. Ref advertisements of large monorepos
// run to a few MB.
const maxBodyBytes = 16 << 20

// --- JSON Helpers ---

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON: encode error", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, APIError{Error: message})
}

// requireJSON checks the Content-Type header and returns false (with a 415 response) if it is not application/json.
func (s *Server) requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		s.writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

// parseLimitOffset extracts limit and offset query params with defaults and validation.
func parseLimitOffset(r *http.Request, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("limit must be a non-negative integer")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// --- API Handlers ---

// handleAPIHealth returns a simple health check response.
func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIPluginRequest runs a versioned plugin call. The HTTP status is
// always 200; the envelope code carries the outcome.
func (s *Server) handleAPIPluginRequest(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}

	var req APIPluginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp := s.proc.Process(r.Context(), req.PluginID, plugin.Request{
		API:        req.API,
		APIVersion: req.APIVersion,
		Body:       req.Body,
	})
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPISelectBranches runs a selection directly. The optional format
// query parameter renders the result through the report package.
func (s *Server) handleAPISelectBranches(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	contentType, ok := reportContentTypes[format]
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	var req plugin.SelectBranchesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	contexts, err := s.proc.Select(r.Context(), req)
	if err != nil {
		s.writeSelectError(w, err)
		return
	}

	if format == report.FormatJSON {
		s.writeJSON(w, http.StatusOK, contexts)
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, format, contexts); err != nil {
		s.logger.Error("render report", zap.String("format", format), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

var reportContentTypes = map[string]string{
	report.FormatJSON:     "application/json",
	report.FormatTable:    "text/plain; charset=utf-8",
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatHTML:     "text/html; charset=utf-8",
}

func (s *Server) writeSelectError(w http.ResponseWriter, err error) {
	var decErr *plugin.DecodeError
	var refErr *branches.MalformedRefError
	var listErr *plugin.ListError

	switch {
	case errors.As(err, &decErr):
		s.writeError(w, http.StatusBadRequest, decErr.Error())
	case errors.As(err, &refErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, APIMalformedRefError{Error: refErr.Error(), Ref: refErr.Ref})
	case errors.As(err, &listErr):
		s.logger.Warn("ref listing failed", zap.String("lister", listErr.Lister), zap.Error(listErr.Err))
		s.writeError(w, http.StatusBadGateway, listErr.Error())
	default:
		s.logger.Error("select branches", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleAPIParseRefs parses a raw ls-remote advertisement from the body.
func (s *Server) handleAPIParseRefs(w http.ResponseWriter, r *http.Request) {
	refs, err := gitref.ParseReader(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "advertisement too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, APIRefsResponse{Refs: refs})
}

// handleAPIListSelections returns a paginated list of audited selections.
func (s *Server) handleAPIListSelections(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "selection audit is not available")
		return
	}

	limit, offset, err := parseLimitOffset(r, 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selections, err := s.db.ListSelections(limit, offset)
	if err != nil {
		s.logger.Error("handleAPIListSelections", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.writeJSON(w, http.StatusOK, APISelectionsResponse{Selections: toAPISelections(selections)})
}
