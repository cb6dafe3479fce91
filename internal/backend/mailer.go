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
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendMailer delivers through the Resend HTTP API. The attachment is
// sent base64-encoded inline, which is fine for single-PDF payloads.
type ResendMailer struct {
	APIKey   string
	From     string
	Endpoint string
	client   *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	if from == "" {
		from = "reports@onresend.com"
	}
	return &ResendMailer{
		APIKey:   apiKey,
		From:     from,
		Endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *ResendMailer) Send(to, subject, body, filename string, attachment []byte) error {
	payload := map[string]any{
		"from":    m.From,
		"to":      []string{to},
		"subject": subject,
		"text":    body,
	}
	if len(attachment) > 0 {
		payload["attachments"] = []map[string]string{{
			"filename": filename,
			"content":  base64.StdEncoding.EncodeToString(attachment),
		}}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// decodeBase64 accepts plain base64 or a full data URL.
func decodeBase64(s string) ([]byte, error) {
	if _, rest, found := strings.Cut(s, ","); found && strings.HasPrefix(s, "data:") {
		s = rest
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
