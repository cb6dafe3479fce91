/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanreport/internal/backend"
	"cleanreport/internal/deliver"
	"cleanreport/internal/domain"
	"cleanreport/internal/store"
)

func testPhoto(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Workspace == nil {
		ws, err := store.Open(t.TempDir())
		require.NoError(t, err)
		opts.Workspace = ws
	}
	s := New(opts)
	t.Cleanup(s.Close)
	return s
}

func newBackend(t *testing.T) (*httptest.Server, *backend.Client) {
	t.Helper()
	kv, err := backend.OpenKV(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	srv, err := backend.NewServer(kv, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	client, err := backend.NewClient(ts.URL, 2*time.Second)
	require.NoError(t, err)
	return ts, client
}

func validReport(t *testing.T) domain.Report {
	return domain.Report{
		Date:      "2025-08-13",
		StaffName: "Jo",
		Areas:     []domain.Area{{SiteName: "Office", Sections: []string{" Kitchen ", "", "Lobby"}}},
		Photos:    []string{testPhoto(t)},
	}
}

func TestLoginGate(t *testing.T) {
	s := newTestService(t, Options{})
	assert.ErrorIs(t, s.Login("admin", "wrong"), ErrBadCredentials)
	assert.ErrorIs(t, s.Login("root", "866457"), ErrBadCredentials)
	assert.False(t, s.Authed())

	require.NoError(t, s.Login("admin", "866457"))
	assert.True(t, s.Authed())

	// The flag survives a reopen.
	ws2, err := store.Open(s.Workspace().Root)
	require.NoError(t, err)
	assert.True(t, ws2.Device.Authed)

	require.NoError(t, s.Logout())
	assert.False(t, s.Authed())
}

func TestSubmitReportValidation(t *testing.T) {
	s := newTestService(t, Options{})

	r := validReport(t)
	r.StaffName = " "
	_, err := s.SubmitReport(r)
	assert.Error(t, err)

	r = validReport(t)
	r.Areas = nil
	_, err = s.SubmitReport(r)
	assert.Error(t, err)

	r = validReport(t)
	r.Photos = nil
	_, err = s.SubmitReport(r)
	assert.Error(t, err)

	r = validReport(t)
	r.Photos = []string{"data:image/png;base64,!!!"}
	_, err = s.SubmitReport(r)
	assert.Error(t, err)
}

func TestSubmitReportNormalizes(t *testing.T) {
	s := newTestService(t, Options{})
	saved, err := s.SubmitReport(validReport(t))
	require.NoError(t, err)

	assert.NotZero(t, saved.ID)
	assert.Equal(t, []string{"Kitchen", "Lobby"}, saved.Areas[0].Sections)
	assert.Contains(t, saved.Summary, "Jo")
	assert.Contains(t, saved.Summary, "August 13th, 2025")

	// Newest first.
	second, err := s.SubmitReport(validReport(t))
	require.NoError(t, err)
	list := s.Reports()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestCreateInvoiceValidation(t *testing.T) {
	s := newTestService(t, Options{})

	inv := domain.Invoice{ClientName: "Acme", PaymentMethod: domain.PayCash}
	_, err := s.CreateInvoice(inv)
	assert.Error(t, err, "no items")

	inv.Items = []domain.InvoiceItem{{Description: " ", Amount: 0}}
	_, err = s.CreateInvoice(inv)
	assert.Error(t, err, "no meaningful items")

	inv.Items = []domain.InvoiceItem{{Description: "Deep clean", Amount: 0}}
	_, err = s.CreateInvoice(inv)
	assert.Error(t, err, "description without amount")

	inv.Items = []domain.InvoiceItem{{Description: "", Amount: 50}}
	_, err = s.CreateInvoice(inv)
	assert.Error(t, err, "amount without description")

	inv.Items = []domain.InvoiceItem{{Description: "Deep clean", Amount: 80}}
	inv.PaymentMethod = domain.PayBank
	_, err = s.CreateInvoice(inv)
	assert.Error(t, err, "bank method without account")

	inv.PaymentMethod = "cheque"
	_, err = s.CreateInvoice(inv)
	assert.Error(t, err, "unknown method")

	inv.PaymentMethod = domain.PayCash
	inv.BankAccountID = "stale"
	saved, err := s.CreateInvoice(inv)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Empty(t, saved.BankAccountID, "cash clears the bank reference")

	inv.Items = []domain.InvoiceItem{
		{Description: "Deep clean", Amount: 80},
		{Description: "Oven (quoted separately)", Amount: 0},
		{Description: "", Amount: 0},
	}
	saved, err = s.CreateInvoice(inv)
	require.NoError(t, err)
	assert.Len(t, saved.Items, 2, "empty item dropped, partial one kept")
}

func TestDeleteOps(t *testing.T) {
	s := newTestService(t, Options{})
	saved, err := s.SubmitReport(validReport(t))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteReport(saved.ID+1), ErrNotFound)
	require.NoError(t, s.DeleteReport(saved.ID))
	assert.Empty(t, s.Reports())

	assert.ErrorIs(t, s.DeleteInvoice(123), ErrNotFound)
}

func TestSetBankAccountsAssignsIDs(t *testing.T) {
	s := newTestService(t, Options{})
	require.NoError(t, s.SetBankAccounts([]domain.BankAccount{{BankName: "Monzo"}}))
	ws := s.Workspace()
	require.Len(t, ws.Banks, 1)
	assert.NotEmpty(t, ws.Banks[0].ID)
}

func TestInitPullOverwritesLocal(t *testing.T) {
	_, client := newBackend(t)
	ws, err := store.Open(t.TempDir())
	require.NoError(t, err)
	ws.Reports = []domain.Report{{ID: 1, StaffName: "stale"}}
	require.NoError(t, ws.SaveReports())

	remote := domain.Snapshot{
		Reports:      []domain.Report{{ID: 2, StaffName: "fresh"}},
		Invoices:     []domain.Invoice{},
		Presets:      []domain.Preset{},
		BankAccounts: []domain.BankAccount{},
		UpdatedAt:    time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(remote)
	require.NoError(t, err)
	require.NoError(t, client.Push(context.Background(), ws.Device.WorkspaceID, payload))

	s := newTestService(t, Options{Workspace: ws, Client: client})
	s.Init(context.Background())

	list := s.Reports()
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].StaffName)
}

func TestInitPartialSnapshotKeepsLocalCollections(t *testing.T) {
	_, client := newBackend(t)
	ws, err := store.Open(t.TempDir())
	require.NoError(t, err)
	ws.Banks = []domain.BankAccount{{ID: "b1", BankName: "Monzo"}}
	require.NoError(t, ws.SaveBanks())

	// A reports-only blob, as an older snapshot shape would push it.
	payload := json.RawMessage(`{"reports":[{"id":9,"staffName":"remote"}]}`)
	require.NoError(t, client.Push(context.Background(), ws.Device.WorkspaceID, payload))

	s := newTestService(t, Options{Workspace: ws, Client: client})
	s.Init(context.Background())

	require.Len(t, s.Reports(), 1)
	require.Len(t, s.Workspace().Banks, 1)
	assert.Equal(t, "Monzo", s.Workspace().Banks[0].BankName)
}

func TestMutationSchedulesDebouncedPush(t *testing.T) {
	_, client := newBackend(t)
	s := newTestService(t, Options{Client: client, Debounce: 50 * time.Millisecond})

	_, err := s.SubmitReport(validReport(t))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		raw, err := client.Pull(context.Background(), s.Workspace().Device.WorkspaceID)
		if err != nil {
			return false
		}
		var snap domain.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return false
		}
		return len(snap.Reports) == 1
	}, 3*time.Second, 50*time.Millisecond, "debounced push should land on the server")
}

func TestSendReportFallsBackToDownload(t *testing.T) {
	dir := t.TempDir()
	download := &deliver.DownloadStrategy{Dir: dir}
	s := newTestService(t, Options{Chain: deliver.NewChain(download)})

	saved, err := s.SubmitReport(validReport(t))
	require.NoError(t, err)

	strategy, delivered, err := s.SendReport(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Equal(t, "download", strategy)

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Contains(t, ents[0].Name(), "Cleaning_Report_Jo_")
}

func TestPDFUnknownIDs(t *testing.T) {
	s := newTestService(t, Options{})
	_, _, err := s.ReportPDF(404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.InvoicePDF(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoicePDFWithDanglingBank(t *testing.T) {
	s := newTestService(t, Options{})
	inv := domain.Invoice{
		ClientName:    "Acme",
		Date:          "2025-08-13",
		Items:         []domain.InvoiceItem{{Description: "Clean", Amount: 45.5}},
		PaymentMethod: domain.PayBank,
		BankAccountID: "gone",
	}
	saved, err := s.CreateInvoice(inv)
	require.NoError(t, err)

	pdf, name, err := s.InvoicePDF(saved.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Contains(t, name, "Invoice_Acme_")
}
