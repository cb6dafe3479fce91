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
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name      string
	delivered bool
	err       error
	calls     int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, att *Attachment) (bool, error) {
	f.calls++
	return f.delivered, f.err
}

func testAttachment() *Attachment {
	return &Attachment{
		Filename: "Cleaning_Report_Jo_2025-08-13.pdf",
		Data:     []byte("%PDF-fake"),
		Subject:  "Cleaning report",
		Body:     "Attached.",
	}
}

func TestChainStopsAtFirstDelivery(t *testing.T) {
	first := &fakeStrategy{name: "share", delivered: true}
	second := &fakeStrategy{name: "email-relay"}

	name, ok := NewChain(first, second).Deliver(context.Background(), testAttachment())
	assert.True(t, ok)
	assert.Equal(t, "share", name)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls)
}

func TestChainSkipsFailedAndUnavailableStrategies(t *testing.T) {
	failing := &fakeStrategy{name: "share", err: errors.New("no handler")}
	unavailable := &fakeStrategy{name: "email-relay"}
	last := &fakeStrategy{name: "download"}

	name, ok := NewChain(failing, unavailable, last).Deliver(context.Background(), testAttachment())
	assert.False(t, ok)
	assert.Equal(t, "download", name)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, unavailable.calls)
	assert.Equal(t, 1, last.calls)
}

func TestShareStrategyUnconfiguredIsSkipped(t *testing.T) {
	s := &ShareStrategy{}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestShareStrategyMissingCommandIsSkipped(t *testing.T) {
	s := &ShareStrategy{Command: "no-such-share-handler-xyz"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestShareStrategyRunsHandler(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}
	s := &ShareStrategy{Command: "/bin/true"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestTokenRelayAcknowledged(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"status":"OK"}`)
	}))
	defer ts.Close()

	s := &TokenRelayStrategy{URL: ts.URL, Token: "tok-1", To: "c@example.com"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestTokenRelayWithoutAckFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"queued"}`)
	}))
	defer ts.Close()

	s := &TokenRelayStrategy{URL: ts.URL, Token: "tok-1", To: "c@example.com"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	assert.Error(t, err)
	assert.False(t, delivered)
}

func TestTokenRelayServerErrorFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := &TokenRelayStrategy{URL: ts.URL, Token: "tok-1", To: "c@example.com"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	assert.Error(t, err)
	assert.False(t, delivered)
}

func TestTokenRelayWithoutTokenIsSkipped(t *testing.T) {
	s := &TokenRelayStrategy{URL: "http://relay", To: "c@example.com"}
	delivered, err := s.Attempt(context.Background(), testAttachment())
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestDownloadAlwaysWritesButNeverDelivers(t *testing.T) {
	dir := t.TempDir()
	s := &DownloadStrategy{Dir: dir}
	att := testAttachment()

	delivered, err := s.Attempt(context.Background(), att)
	require.NoError(t, err)
	assert.False(t, delivered)

	data, err := os.ReadFile(filepath.Join(dir, att.Filename))
	require.NoError(t, err)
	assert.Equal(t, att.Data, data)
	assert.Equal(t, filepath.Join(dir, att.Filename), s.LastPath)
}

func TestFullChainFallsBackToDownload(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer relay.Close()

	dir := t.TempDir()
	download := &DownloadStrategy{Dir: dir}
	chain := NewChain(
		&ShareStrategy{},
		&TokenRelayStrategy{URL: relay.URL, Token: "tok", To: "c@example.com"},
		download,
	)

	att := testAttachment()
	name, ok := chain.Deliver(context.Background(), att)
	assert.False(t, ok)
	assert.Equal(t, "download", name)
	_, err := os.Stat(filepath.Join(dir, att.Filename))
	assert.NoError(t, err)
}
