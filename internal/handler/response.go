// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the JSON HTTP API: tracking, analytics and
// audit reporting, exports, posts, comments and admin authentication.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/middleware"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error JSON response of the form
// {"error":{"code":...,"message":...,"details":...}}.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, message, details)
}

// writeSuccess writes {"success":true}.
func writeSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

func writeNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// logAndInternalError logs err server-side and writes a generic 500.
func logAndInternalError(w http.ResponseWriter, logger *slog.Logger, logMsg string, err error, args ...any) {
	logger.Error(logMsg, append([]any{"error", err}, args...)...)
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// decodeJSON decodes a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseIDParam reads a positive integer URL parameter. On failure it writes
// a 400 and returns false.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// requireEntity fetches an entity with queryFn, writing 404 for
// sql.ErrNoRows and 500 for anything else.
func requireEntity[T any](
	w http.ResponseWriter,
	logger *slog.Logger,
	entityName string,
	id int64,
	queryFn func(id int64) (T, error),
) (T, bool) {
	var zero T
	entity, err := queryFn(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeNotFound(w, entityName+" not found")
		} else {
			logAndInternalError(w, logger, "failed to get "+entityName, err, entityName+"_id", id)
		}
		return zero, false
	}
	return entity, true
}
