/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	applog "cleanreport/internal/log"
	"cleanreport/internal/version"
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

// syncKeyPrefix namespaces workspace snapshots in the KV store.
const syncKeyPrefix = "cleaning:"

// emptySnapshotJSON is what an unknown workspace pulls: a valid empty
// state rather than a 404, so a fresh install starts clean.
const emptySnapshotJSON = `{"reports":[],"invoices":[],"presets":[],"banks":[],"updatedAt":null}`

// maxPushBytes bounds a push payload (snapshots embed photos as data URLs).
const maxPushBytes = 64 << 20

// Mailer sends one email with a single attachment.
type Mailer interface {
	Send(to, subject, body, filename string, attachment []byte) error
}

// Server is the thin sync and email relay backend. It owns no business
// logic: snapshots are opaque blobs validated only for shape.
type Server struct {
	kv     KV
	mailer Mailer
	schema *gojsonschema.Schema
}

// ServerConfig holds server settings; zero values pull from environment.
type ServerConfig struct {
	DSN  string
	Addr string
}

func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		DSN:  os.Getenv("CR_DB_DSN"),
		Addr: ":8080",
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.DSN == "" {
		cfg.DSN = v
	}
	if cfg.DSN == "" {
		cfg.DSN = "cleanreport.db"
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	return cfg
}

// NewServer builds a server around an open KV store and a mailer. The
// mailer may be nil; /send-email then reports the relay as unconfigured.
func NewServer(kv KV, mailer Mailer) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	return &Server{kv: kv, mailer: mailer, schema: schema}, nil
}

// Handler returns the HTTP mux for the backend API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.kv.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("/sync/pull", s.handlePull)
	mux.HandleFunc("/sync/push", s.handlePush)
	mux.HandleFunc("/send-email", s.handleSendEmail)
	return mux
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	workspace := strings.TrimSpace(r.URL.Query().Get("workspace"))
	if workspace == "" {
		writeError(w, http.StatusBadRequest, errors.New("workspace is required"))
		return
	}
	payload, err := s.kv.Get(r.Context(), syncKeyPrefix+workspace)
	switch {
	case errors.Is(err, ErrNotFound):
		payload = emptySnapshotJSON
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, payload)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Workspace string          `json:"workspace"`
		Payload   json.RawMessage `json:"payload"`
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := json.Unmarshal(b, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if strings.TrimSpace(req.Workspace) == "" {
		writeError(w, http.StatusBadRequest, errors.New("workspace is required"))
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("payload is required"))
		return
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(req.Payload))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("validate payload: %w", err))
		return
	}
	if !result.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("payload rejected: %s", schemaErrors(result)))
		return
	}
	if err := s.kv.Put(r.Context(), syncKeyPrefix+req.Workspace, string(req.Payload)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		To       string `json:"to"`
		Subject  string `json:"subject"`
		Body     string `json:"body"`
		Filename string `json:"filename"`
		Base64   string `json:"base64"`
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := json.Unmarshal(b, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" ||
		strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.Base64) == "" {
		writeError(w, http.StatusBadRequest, errors.New("to, subject, filename and base64 are required"))
		return
	}
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("email relay not configured"))
		return
	}
	attachment, err := decodeBase64(req.Base64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid attachment: %w", err))
		return
	}
	if err := s.mailer.Send(req.To, req.Subject, req.Body, req.Filename, attachment); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("send email: %w", err))
		return
	}
	id := uuid.NewString()
	if err := s.kv.LogEmail(r.Context(), id, req.To, req.Subject, req.Filename); err != nil {
		applog.WithComponent("backend").Warn("email log write failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// Start opens the store from environment config and serves the API.
func Start() error {
	cfg := loadServerConfig()
	log := applog.WithComponent("backend")

	kv, err := OpenKV(context.Background(), cfg.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Warn("kv close", "error", err)
		}
	}()

	var mailer Mailer
	if key := os.Getenv("CR_RESEND_API_KEY"); key != "" {
		mailer = NewResendMailer(key, os.Getenv("CR_MAIL_FROM"))
	} else {
		log.Warn("CR_RESEND_API_KEY not set; email relay disabled")
	}

	srv, err := NewServer(kv, mailer)
	if err != nil {
		return err
	}
	log.Info("listening", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, srv.Handler())
}

func schemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
