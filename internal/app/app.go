/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package app is the application service: it owns the workspace, gates
// access behind the operator credential, applies mutations, and wires
// every change into the debounced sync push. PDF output and delivery
// hang off the same service so the CLI stays thin.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cleanreport/internal/backend"
	"cleanreport/internal/deliver"
	"cleanreport/internal/doc"
	"cleanreport/internal/domain"
	"cleanreport/internal/export"
	applog "cleanreport/internal/log"
	"cleanreport/internal/store"
	"cleanreport/internal/telemetry"
)

// The single-operator credential. There are no accounts; the check only
// keeps casual hands off the records on a shared machine.
const (
	loginUser = "admin"
	loginPass = "866457"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrNotAuthed      = errors.New("not logged in")
	ErrNotFound       = errors.New("record not found")
)

// Options wires the service's collaborators. Client and Chain may be
// nil: without a client the app runs fully offline, without a chain
// Send operations fail cleanly.
type Options struct {
	Workspace *store.Workspace
	Client    *backend.Client
	Chain     *deliver.Chain
	Debounce  time.Duration
}

// Service coordinates all operations over one workspace.
type Service struct {
	mu     sync.Mutex
	ws     *store.Workspace
	client *backend.Client
	chain  *deliver.Chain
	sched  *backend.Scheduler
}

func New(opts Options) *Service {
	s := &Service{
		ws:     opts.Workspace,
		client: opts.Client,
		chain:  opts.Chain,
	}
	s.sched = backend.NewScheduler(opts.Debounce, s.pushNow)
	return s
}

// Close flushes any pending push and stops the scheduler.
func (s *Service) Close() {
	if s.client != nil {
		s.sched.Flush()
	}
	s.sched.Stop()
}

// Workspace exposes the underlying store, mainly for crash recovery.
func (s *Service) Workspace() *store.Workspace { return s.ws }

// Login checks the operator credential and persists the unlock flag.
func (s *Service) Login(user, pass string) error {
	if user != loginUser || pass != loginPass {
		return ErrBadCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Device.Authed = true
	return s.ws.SaveDevice()
}

// Logout clears the unlock flag.
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Device.Authed = false
	return s.ws.SaveDevice()
}

func (s *Service) Authed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Device.Authed
}

// Init performs the one startup pull. When the server payload carries
// the expected arrays the local collections are overwritten and
// re-persisted; any failure leaves local state authoritative.
func (s *Service) Init(ctx context.Context) {
	if s.client == nil {
		return
	}
	log := applog.WithOperation(applog.WithComponent("app"), "init")
	raw, err := s.client.Pull(ctx, s.workspaceID())
	if err != nil {
		log.Warn("startup pull failed, keeping local state", "error", err)
		return
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Warn("startup pull unreadable, keeping local state", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.Replace(&snap); err != nil {
		log.Error("persisting pulled snapshot failed", "error", err)
		return
	}
	log.Info("workspace synced",
		"reports", len(snap.Reports), "invoices", len(snap.Invoices),
		"presets", len(snap.Presets), "banks", len(snap.BankAccounts))
}

// SubmitReport validates and stores a new report, newest first. The id
// is assigned from the clock when unset. Sections are trimmed and empty
// ones dropped; every photo payload must decode.
func (s *Service) SubmitReport(r domain.Report) (domain.Report, error) {
	if strings.TrimSpace(r.StaffName) == "" {
		return r, errors.New("staff name is required")
	}
	if len(r.Areas) == 0 {
		return r, errors.New("at least one area is required")
	}
	if len(r.Photos) == 0 {
		return r, errors.New("at least one photo is required")
	}
	if _, err := export.DecodePhotos(r.Photos); err != nil {
		return r, fmt.Errorf("photos: %w", err)
	}
	for i := range r.Areas {
		r.Areas[i].Sections = cleanSections(r.Areas[i].Sections)
	}
	if r.ID == 0 {
		r.ID = time.Now().UnixMilli()
	}
	if r.Date == "" {
		r.Date = time.Now().Format("2006-01-02")
	}
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = doc.SummaryTemplate(r.StaffName, r.Date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Reports = append([]domain.Report{r}, s.ws.Reports...)
	if err := s.ws.SaveReports(); err != nil {
		return r, err
	}
	s.schedulePush()
	return r, nil
}

// CreateInvoice validates and stores a new invoice, newest first. Fully
// empty items are dropped; at least one item must carry both a
// description and a positive amount. Bank payment requires an account id.
func (s *Service) CreateInvoice(inv domain.Invoice) (domain.Invoice, error) {
	if strings.TrimSpace(inv.ClientName) == "" {
		return inv, errors.New("client name is required")
	}
	items := inv.Items[:0:0]
	complete := false
	for _, it := range inv.Items {
		it.Description = strings.TrimSpace(it.Description)
		if it.Description == "" && it.Amount == 0 {
			continue
		}
		if it.Description != "" && it.Amount > 0 {
			complete = true
		}
		items = append(items, it)
	}
	if !complete {
		return inv, errors.New("at least one item with a description and amount is required")
	}
	inv.Items = items
	switch inv.PaymentMethod {
	case domain.PayCash:
		inv.BankAccountID = ""
	case domain.PayBank:
		if inv.BankAccountID == "" {
			return inv, errors.New("bank payment requires a bank account")
		}
	default:
		return inv, fmt.Errorf("unknown payment method %q", inv.PaymentMethod)
	}
	if inv.ID == 0 {
		inv.ID = time.Now().UnixMilli()
	}
	if inv.Date == "" {
		inv.Date = time.Now().Format("2006-01-02")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Invoices = append([]domain.Invoice{inv}, s.ws.Invoices...)
	if err := s.ws.SaveInvoices(); err != nil {
		return inv, err
	}
	s.schedulePush()
	return inv, nil
}

// DeleteReport removes a report by id.
func (s *Service) DeleteReport(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.ws.Reports[:0:0]
	for _, r := range s.ws.Reports {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.ws.Reports) {
		return ErrNotFound
	}
	s.ws.Reports = kept
	if err := s.ws.SaveReports(); err != nil {
		return err
	}
	s.schedulePush()
	return nil
}

// DeleteInvoice removes an invoice by id.
func (s *Service) DeleteInvoice(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.ws.Invoices[:0:0]
	for _, inv := range s.ws.Invoices {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	if len(kept) == len(s.ws.Invoices) {
		return ErrNotFound
	}
	s.ws.Invoices = kept
	if err := s.ws.SaveInvoices(); err != nil {
		return err
	}
	s.schedulePush()
	return nil
}

// SetPresets replaces the preset collection.
func (s *Service) SetPresets(presets []domain.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Presets = presets
	if err := s.ws.SavePresets(); err != nil {
		return err
	}
	s.schedulePush()
	return nil
}

// SetBankAccounts replaces the bank account collection, assigning ids
// to new entries.
func (s *Service) SetBankAccounts(accounts []domain.BankAccount) error {
	for i := range accounts {
		if accounts[i].ID == "" {
			accounts[i].ID = uuid.NewString()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Banks = accounts
	if err := s.ws.SaveBanks(); err != nil {
		return err
	}
	s.schedulePush()
	return nil
}

// Reports returns a copy of the report list, newest first.
func (s *Service) Reports() []domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Report(nil), s.ws.Reports...)
}

// Invoices returns a copy of the invoice list, newest first.
func (s *Service) Invoices() []domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Invoice(nil), s.ws.Invoices...)
}

// ReportPDF renders a stored report. Returns the bytes and filename.
func (s *Service) ReportPDF(id int64) ([]byte, string, error) {
	r, ok := s.findReport(id)
	if !ok {
		return nil, "", ErrNotFound
	}
	pdf, err := export.ReportPDF(r)
	if err != nil {
		return nil, "", err
	}
	telemetry.Event("report_pdf", map[string]any{"photos": len(r.Photos), "areas": len(r.Areas)})
	return pdf, export.ReportFilename(r), nil
}

// InvoicePDF renders a stored invoice. A dangling bank reference is not
// an error; the document carries the placeholder text.
func (s *Service) InvoicePDF(id int64) ([]byte, string, error) {
	inv, ok := s.findInvoice(id)
	if !ok {
		return nil, "", ErrNotFound
	}
	pdf, err := export.InvoicePDF(inv, s.bankLookup())
	if err != nil {
		return nil, "", err
	}
	telemetry.Event("invoice_pdf", map[string]any{"items": len(inv.Items)})
	return pdf, export.InvoiceFilename(inv), nil
}

// SendReport renders a report and runs it through the delivery chain.
func (s *Service) SendReport(ctx context.Context, id int64) (string, bool, error) {
	r, ok := s.findReport(id)
	if !ok {
		return "", false, ErrNotFound
	}
	pdf, name, err := s.ReportPDF(id)
	if err != nil {
		return "", false, err
	}
	subject := fmt.Sprintf("Cleaning Report - %s", doc.DateLongEnglish(r.Date))
	body := fmt.Sprintf("Please find attached the cleaning report for %s.", doc.DateLongEnglish(r.Date))
	return s.send(ctx, pdf, name, subject, body)
}

// SendInvoice renders an invoice and runs it through the delivery chain.
func (s *Service) SendInvoice(ctx context.Context, id int64) (string, bool, error) {
	inv, ok := s.findInvoice(id)
	if !ok {
		return "", false, ErrNotFound
	}
	pdf, name, err := s.InvoicePDF(id)
	if err != nil {
		return "", false, err
	}
	subject := fmt.Sprintf("Invoice - %s", inv.ClientName)
	body := fmt.Sprintf("Please find attached your invoice dated %s.", doc.DateLongEnglish(inv.Date))
	return s.send(ctx, pdf, name, subject, body)
}

// Flush forces any pending push out immediately.
func (s *Service) Flush() {
	if s.client != nil {
		s.sched.Flush()
	}
}

func (s *Service) send(ctx context.Context, pdf []byte, filename, subject, body string) (string, bool, error) {
	if s.chain == nil {
		return "", false, errors.New("no delivery chain configured")
	}
	att := &deliver.Attachment{Filename: filename, Data: pdf, Subject: subject, Body: body}
	strategy, delivered := s.chain.Deliver(ctx, att)
	telemetry.Event("delivery", map[string]any{"strategy": strategy, "delivered": delivered})
	return strategy, delivered, nil
}

func (s *Service) bankLookup() doc.BankLookup {
	s.mu.Lock()
	accounts := append([]domain.BankAccount(nil), s.ws.Banks...)
	s.mu.Unlock()
	return func(id string) (domain.BankAccount, bool) {
		return domain.FindBankAccount(accounts, id)
	}
}

func (s *Service) findReport(id int64) (domain.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ws.Reports {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Report{}, false
}

func (s *Service) findInvoice(id int64) (domain.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.ws.Invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return domain.Invoice{}, false
}

func (s *Service) workspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Device.WorkspaceID
}

// schedulePush arms the debounce timer. Callers hold s.mu; the timer
// callback takes it again when it fires.
func (s *Service) schedulePush() {
	if s.client == nil {
		return
	}
	s.sched.Schedule()
}

func (s *Service) pushNow() {
	s.mu.Lock()
	snap := s.ws.Snapshot()
	workspace := s.ws.Device.WorkspaceID
	s.mu.Unlock()

	payload, err := json.Marshal(snap)
	if err != nil {
		applog.WithComponent("app").Error("snapshot marshal failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.client.Push(ctx, workspace, payload); err != nil {
		// Local state stays authoritative; the next mutation retries.
		applog.WithComponent("app").Warn("push failed", "error", err)
	}
}

func cleanSections(sections []string) []string {
	out := sections[:0:0]
	for _, sec := range sections {
		if t := strings.TrimSpace(sec); t != "" {
			out = append(out, t)
		}
	}
	return out
}
