/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// This file defines the core data model for cleaning reports, invoices and
// the workspace snapshot that travels over the sync wire. JSON tags match
// the wire format exactly; renaming a field here is a protocol change.

// Area is one physical site and the named zones cleaned there. It has no
// identity of its own beyond its position in the owning report.
type Area struct {
	SiteName string   `json:"siteName"`
	Sections []string `json:"sections"`
}

// Report is a single cleaning-job report. It is immutable once rendered;
// collections replace reports wholesale rather than patching fields.
// ID is the creation time in Unix milliseconds.
type Report struct {
	ID        int64    `json:"id"`
	Date      string   `json:"date"` // ISO date, e.g. "2025-08-13"
	StaffName string   `json:"staffName"`
	Summary   string   `json:"summary"`
	Notes     string   `json:"notes"`
	Areas     []Area   `json:"areas"`
	Photos    []string `json:"photos"` // base64 data URLs or raw base64 image payloads
}

// BankAccount holds UK bank details referenced by invoices. Invoices keep
// only the id; a dangling reference renders a placeholder, never an error.
type BankAccount struct {
	ID            string `json:"id"`
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	SortCode      string `json:"sortCode"`
	AccountNumber string `json:"accountNumber"`
	IBAN          string `json:"iban,omitempty"`
	ReferenceNote string `json:"referenceNote,omitempty"`
}

// InvoiceItem is one billable line.
type InvoiceItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// UnmarshalJSON tolerates sloppy amounts on the wire: numbers encoded as
// strings parse normally, anything non-numeric becomes zero. The original
// store was populated by loosely-typed clients, so this shows up in
// real snapshots.
func (it *InvoiceItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	it.Description = raw.Description
	it.Amount = 0
	if len(raw.Amount) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw.Amount, &n); err == nil {
		it.Amount = n
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Amount, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			it.Amount = n
		}
	}
	return nil
}

// Payment methods accepted on an invoice.
const (
	PayCash = "cash"
	PayBank = "bank"
)

// Invoice is a client invoice. BankAccountID is set iff PaymentMethod is
// PayBank. ID is the creation time in Unix milliseconds.
type Invoice struct {
	ID            int64         `json:"id"`
	Date          string        `json:"date"`
	ClientName    string        `json:"clientName"`
	ClientAddress string        `json:"clientAddress"`
	Items         []InvoiceItem `json:"items"`
	PaymentMethod string        `json:"paymentMethod"`
	BankAccountID string        `json:"bankAccountId,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// Preset is a reusable area template offered during report authoring.
// It is copied into a report, never referenced.
type Preset = Area

// Snapshot is the complete serialized state of one workspace, the unit
// of sync transfer. There is no field-level merge; the most recent whole
// snapshot wins.
type Snapshot struct {
	Reports      []Report      `json:"reports"`
	Invoices     []Invoice     `json:"invoices"`
	Presets      []Preset      `json:"presets"`
	BankAccounts []BankAccount `json:"banks"`
	UpdatedAt    int64         `json:"updatedAt"` // Unix milliseconds
}

// Total sums the invoice item amounts. Amounts are kept as parsed; a
// missing or non-numeric amount decodes to zero and contributes nothing.
func (inv Invoice) Total() float64 {
	var sum float64
	for _, it := range inv.Items {
		sum += it.Amount
	}
	return sum
}

// FindBankAccount resolves an account id within a collection.
func FindBankAccount(accounts []BankAccount, id string) (BankAccount, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return BankAccount{}, false
}
