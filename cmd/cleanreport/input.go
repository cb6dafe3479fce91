/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cleanreport/internal/domain"
)

// buildReportInput assembles a report from CLI flags. Area syntax is
// 'Site:section,section'; photo arguments are file paths.
func buildReportInput(date, staff, summary, notes string, areaSpecs, photoPaths []string) (domain.Report, error) {
	r := domain.Report{
		Date:      date,
		StaffName: staff,
		Summary:   summary,
		Notes:     notes,
	}
	for _, spec := range areaSpecs {
		site, rest, _ := strings.Cut(spec, ":")
		area := domain.Area{SiteName: strings.TrimSpace(site)}
		for _, sec := range strings.Split(rest, ",") {
			if t := strings.TrimSpace(sec); t != "" {
				area.Sections = append(area.Sections, t)
			}
		}
		r.Areas = append(r.Areas, area)
	}
	for _, path := range photoPaths {
		payload, err := encodePhotoFile(path)
		if err != nil {
			return r, err
		}
		r.Photos = append(r.Photos, payload)
	}
	return r, nil
}

// buildInvoiceInput assembles an invoice from CLI flags. Item syntax is
// 'description=amount'.
func buildInvoiceInput(date, client, address string, itemSpecs []string, method, bankID, notes string) (domain.Invoice, error) {
	inv := domain.Invoice{
		Date:          date,
		ClientName:    client,
		ClientAddress: address,
		PaymentMethod: method,
		BankAccountID: bankID,
		Notes:         notes,
	}
	for _, spec := range itemSpecs {
		desc, amountStr, found := strings.Cut(spec, "=")
		if !found {
			return inv, fmt.Errorf("invalid item %q, want 'description=amount'", spec)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(amountStr), 64)
		if err != nil {
			return inv, fmt.Errorf("invalid amount in %q: %w", spec, err)
		}
		inv.Items = append(inv.Items, domain.InvoiceItem{
			Description: strings.TrimSpace(desc),
			Amount:      amount,
		})
	}
	return inv, nil
}

// encodePhotoFile reads an image file into the data-URL form the report
// pipeline stores.
func encodePhotoFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read photo %s: %w", path, err)
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
