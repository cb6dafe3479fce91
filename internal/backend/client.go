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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Client talks to the sync backend. All failures are soft: the app keeps
// working from local records and retries on the next mutation.
type Client struct {
	BaseURL string
	client  *http.Client
	schema  *gojsonschema.Schema
}

// NewClient creates a sync client. baseURL may include a trailing slash;
// it will be normalized.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		schema:  schema,
	}, nil
}

// Pull fetches the server snapshot for a workspace. A nil snapshot with
// a non-nil error means the pull failed and local state should stand; a
// response whose collections carry the wrong JSON types is treated the
// same way. Collections absent from the payload are simply left alone
// by the caller, so older snapshot shapes still pull cleanly.
func (c *Client) Pull(ctx context.Context, workspace string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/sync/pull?workspace=%s", c.BaseURL, url.QueryEscape(workspace))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPushBytes))
	if err != nil {
		return nil, err
	}
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate pull: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("pull rejected: %s", schemaErrors(result))
	}
	return body, nil
}

// Push uploads a whole snapshot. Best effort; the caller logs and moves on.
func (c *Client) Push(ctx context.Context, workspace string, payload json.RawMessage) error {
	body, err := json.Marshal(map[string]any{
		"workspace": workspace,
		"payload":   payload,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SendEmail asks the backend relay to deliver a PDF attachment.
func (c *Client) SendEmail(ctx context.Context, to, subject, bodyText, filename string, attachment []byte) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"to":       to,
		"subject":  subject,
		"body":     bodyText,
		"filename": filename,
		"base64":   encodeBase64(attachment),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send-email", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return string(msg), fmt.Errorf("send-email: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return string(msg), nil
}
