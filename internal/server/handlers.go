package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"dataworks/internal/logging"
	"dataworks/internal/store"
	"dataworks/internal/tools"
	"dataworks/internal/trace"
)

// taskBodyLimit caps a submitted task description.
const taskBodyLimit = 64 * 1024

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleRun accepts a task as the "task" query parameter or as a plain
// text body, runs it to completion, and returns the full result.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	goal := strings.TrimSpace(r.URL.Query().Get("task"))
	if goal == "" && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, taskBodyLimit))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read request body"})
			return
		}
		goal = strings.TrimSpace(string(body))
	}
	if goal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "task is required"})
		return
	}

	task := trace.NewTask(goal)
	logging.Server("run %s accepted: %q", task.ID, goal)
	result := s.runner.Run(r.Context(), task)

	if s.runs != nil {
		if err := s.runs.Save(r.Context(), result); err != nil {
			logging.ServerError("failed to persist run %s: %v", task.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRead serves a file from inside the sandbox.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("path")
	if requested == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "path is required"})
		return
	}

	resolved, err := s.sandbox.Resolve(requested)
	if err != nil {
		if errors.Is(err, tools.ErrPathEscape) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "path is outside the sandbox"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "file not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to read file"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "run store disabled"})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	summaries, err := s.runs.List(r.Context(), limit)
	if err != nil {
		logging.ServerError("failed to list runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list runs"})
		return
	}
	if summaries == nil {
		summaries = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "run store disabled"})
		return
	}
	result, err := s.runs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "run not found"})
			return
		}
		logging.ServerError("failed to load run: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load run"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
