package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cirs/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "CIRS API is running", "status": "healthy"})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		// Check database connectivity
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/users/register" {
		s.handleRegister(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/users/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/categories" {
		items, err := s.service.ListCategories(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list categories", nil)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/categories/init" {
		if err := s.service.ResetCategories(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not initialize categories", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Categories initialized"})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/issues" {
		s.handleCreateIssue(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/issues" {
		s.handleListIssues(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/issues/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		categoryID := strings.TrimSpace(r.URL.Query().Get("category_id"))
		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		writeJSON(w, http.StatusOK, s.service.SearchIssues(q, categoryID, limit))
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "issues" {
		if r.Method == http.MethodGet {
			payload, err := s.service.GetIssue(r.Context(), parts[2])
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "issues" && parts[3] == "vote" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		s.handleToggleVote(w, r, parts[2])
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "issues" && parts[3] == "comments" {
		s.handleComments(w, r, parts[2])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body RegisterInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.Register(r.Context(), body)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
			return
		}
		writeError(w, http.StatusBadRequest, "REGISTER_FAILED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"message": "User registered successfully",
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"message": "Login successful",
	})
}

func (s *HTTPServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var body CreateIssueInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
		return
	}
	issue, err := s.service.CreateIssue(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"issue":   issue,
		"message": "Issue reported successfully",
	})
}

func (s *HTTPServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := ListIssuesInput{
		CategoryID: strings.TrimSpace(query.Get("category_id")),
	}

	lat, latErr := parseFloatParam(query.Get("lat"))
	lng, lngErr := parseFloatParam(query.Get("lng"))
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "lat and lng must be numbers", nil)
		return
	}
	input.Lat = lat
	input.Lng = lng

	radius, radiusErr := parseFloatParam(query.Get("radius"))
	if radiusErr != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "radius must be a number", nil)
		return
	}
	input.Radius = radius

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		input.Limit = parsed
	}

	items, err := s.service.ListIssues(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list issues", nil)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleToggleVote(w http.ResponseWriter, r *http.Request, issueID string) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.UserID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user_id is required", nil)
		return
	}

	voted, err := s.service.ToggleVote(r.Context(), issueID, body.UserID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	message := "Vote removed"
	if voted {
		message = "Vote added"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"voted":   voted,
		"message": message,
	})
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, issueID string) {
	if r.Method == http.MethodGet {
		items, err := s.service.ListComments(r.Context(), issueID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list comments", nil)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	if r.Method == http.MethodPost {
		var body struct {
			UserID  string `json:"user_id"`
			Message string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.AddComment(r.Context(), issueID, body.UserID, body.Message)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"comment": comment,
			"message": "Comment added",
		})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseFloatParam(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if store.IsNotFound(err) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
