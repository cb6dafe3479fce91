/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package deliver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cleanreport/internal/backend"
)

// Prompter asks the operator for a recipient address. Empty means the
// operator declined, which skips email strategies without error.
type Prompter func(ctx context.Context) (string, error)

// RelayStrategy emails through the app backend's /send-email endpoint.
type RelayStrategy struct {
	Client *backend.Client
	Prompt Prompter
	To     string // preset recipient, skips the prompt when set
}

func (s *RelayStrategy) Name() string { return "email-relay" }

func (s *RelayStrategy) Attempt(ctx context.Context, att *Attachment) (bool, error) {
	if s.Client == nil {
		return false, nil
	}
	to, err := s.recipient(ctx)
	if err != nil {
		return false, err
	}
	if to == "" {
		return false, nil
	}
	if _, err := s.Client.SendEmail(ctx, to, att.Subject, att.Body, att.Filename, att.Data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RelayStrategy) recipient(ctx context.Context) (string, error) {
	if s.To != "" {
		return s.To, nil
	}
	if s.Prompt == nil {
		return "", nil
	}
	return s.Prompt(ctx)
}

// TokenRelayStrategy posts directly to an SMTP relay endpoint using the
// secure token from the OS keyring. The relay's contract is loose: any
// 2xx response whose body contains "ok" counts as sent.
type TokenRelayStrategy struct {
	URL    string
	Token  string
	From   string
	Prompt Prompter
	To     string

	HTTPClient *http.Client
}

func (s *TokenRelayStrategy) Name() string { return "email-token" }

func (s *TokenRelayStrategy) Attempt(ctx context.Context, att *Attachment) (bool, error) {
	if s.URL == "" || s.Token == "" {
		return false, nil
	}
	to := s.To
	if to == "" && s.Prompt != nil {
		var err error
		if to, err = s.Prompt(ctx); err != nil {
			return false, err
		}
	}
	if to == "" {
		return false, nil
	}

	body, err := json.Marshal(map[string]any{
		"from":     s.From,
		"to":       to,
		"subject":  att.Subject,
		"body":     att.Body,
		"filename": att.Filename,
		"base64":   base64.StdEncoding.EncodeToString(att.Data),
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("smtp relay: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	if !strings.Contains(strings.ToLower(string(respBody)), "ok") {
		return false, errors.New("smtp relay did not acknowledge")
	}
	return true, nil
}
