/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import (
	"fmt"

	"cleanreport/internal/domain"
	"cleanreport/internal/layout"
)

// BankNotFoundText is rendered when an invoice references a bank account
// that no longer exists. A dangling reference is not an error.
const BankNotFoundText = "Bank details not found."

// Column geometry for the items table, in points from the margins.
const (
	billToWidth    = 260.0
	amountColInset = 120.0 // amount column x = right margin - inset
	descColReserve = 140.0 // width kept free of the description column
)

// BankLookup resolves a bank account id; ok is false when the account
// is unknown.
type BankLookup func(id string) (domain.BankAccount, bool)

// BuildInvoice lays out an invoice onto a single page set: header,
// bill-to block, items table with wrapped descriptions, ruled total,
// payment-method block and optional notes.
func BuildInvoice(inv domain.Invoice, lookup BankLookup, m layout.Measurer) Document {
	head22 := layout.Font{Style: layout.StyleBold, SizePt: 22}
	bold11 := layout.Font{Style: layout.StyleBold, SizePt: 11}
	body11 := layout.Font{Style: layout.StyleRegular, SizePt: 11}

	w := newWriter("Invoice")
	right := layout.PageWidth - layout.Margin
	amountX := right - amountColInset

	w.text(layout.Margin, "INVOICE", head22)
	w.cur.Advance(10)

	w.cur.Advance(18)
	w.text(layout.Margin, "Date: "+DateLongEnglish(inv.Date), body11)
	w.cur.Advance(16)
	w.text(layout.Margin, fmt.Sprintf("Invoice #: %d", inv.ID), body11)

	w.cur.Advance(12)
	w.text(layout.Margin, "Bill To:", bold11)
	w.cur.Advance(14)
	client := layout.Wrap(m, body11, inv.ClientName+"\n"+inv.ClientAddress, billToWidth)
	w.textLines(layout.Margin, client, body11, bodyLineH)

	w.cur.Advance(18)
	w.text(layout.Margin, "Description", bold11)
	w.text(amountX, "Amount (GBP)", bold11)
	w.cur.Advance(8)
	w.rule(layout.Margin, right, 200)
	w.cur.Advance(14)

	for _, it := range inv.Items {
		desc := it.Description
		if desc == "" {
			desc = "-"
		}
		lines := layout.Wrap(m, body11, desc, layout.UsableWidth-descColReserve)
		for i, ln := range lines {
			w.text(layout.Margin, ln, body11)
			if i == 0 {
				w.text(amountX, GBP(it.Amount), body11)
			}
			w.cur.Advance(bodyLineH)
		}
		w.cur.Advance(4)
	}

	w.cur.Advance(8)
	w.rule(layout.Margin, right, 200)
	w.cur.Advance(16)
	total := "Total: " + GBP(inv.Total())
	w.text(right-m.TextWidth(total, bold11), total, bold11)

	w.cur.Advance(28)
	w.text(layout.Margin, "Payment Method:", bold11)
	w.cur.Advance(14)
	w.textLines(layout.Margin, paymentLines(inv, lookup), body11, bodyLineH)

	if inv.Notes != "" {
		w.cur.Advance(26)
		w.text(layout.Margin, "Notes:", bold11)
		w.cur.Advance(14)
		w.textLines(layout.Margin, layout.Wrap(m, body11, inv.Notes, layout.UsableWidth), body11, bodyLineH)
	}
	return *w.d
}

func paymentLines(inv domain.Invoice, lookup BankLookup) []string {
	if inv.PaymentMethod != domain.PayBank {
		return []string{"Cash (GBP)"}
	}
	if lookup == nil {
		return []string{BankNotFoundText}
	}
	bank, ok := lookup(inv.BankAccountID)
	if !ok {
		return []string{BankNotFoundText}
	}
	lines := []string{
		fmt.Sprintf("%s — %s", bank.BankName, bank.AccountName),
		"Sort Code: " + bank.SortCode,
		"Account Number: " + bank.AccountNumber,
	}
	if bank.IBAN != "" {
		lines = append(lines, "IBAN: "+bank.IBAN)
	}
	if bank.ReferenceNote != "" {
		lines = append(lines, "Reference: "+bank.ReferenceNote)
	}
	return lines
}
