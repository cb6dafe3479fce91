/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns built documents into PDF bytes.
// Units are points; built-in Helvetica keeps text vector without font
// embedding, which is enough for report/invoice output on any viewer.
package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"cleanreport/internal/doc"
	"cleanreport/internal/domain"
	"cleanreport/internal/layout"
)

const fontFamily = "Helvetica"

// pdfMeasurer measures text with the same engine that later draws it,
// so wrap decisions in the builders match the rendered output exactly.
type pdfMeasurer struct {
	f *gofpdf.Fpdf
}

// NewMeasurer returns a gofpdf-backed layout.Measurer.
func NewMeasurer() layout.Measurer {
	f := gofpdf.New("P", "pt", "A4", "")
	f.SetFont(fontFamily, "", 12)
	return &pdfMeasurer{f: f}
}

func (m *pdfMeasurer) TextWidth(s string, fo layout.Font) float64 {
	m.f.SetFont(fontFamily, fo.Style, fo.SizePt)
	return m.f.GetStringWidth(s)
}

// RenderPDF draws a built document onto A4 pages. photos must contain
// one normalized JPEG per ImageOp photo index in the document.
func RenderPDF(d doc.Document, photos []Photo) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(d.Title, true)
	pdf.SetAuthor("Cleaning Report", true)
	pdf.SetFont(fontFamily, "", 12)

	opts := gofpdf.ImageOptions{ImageType: "JPEG"}
	for i, p := range photos {
		pdf.RegisterImageOptionsReader(photoName(i), opts, bytes.NewReader(p.JPEG))
	}

	for _, page := range d.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			switch o := op.(type) {
			case doc.TextOp:
				pdf.SetFont(fontFamily, o.Font.Style, o.Font.SizePt)
				pdf.Text(o.X, o.Y, o.Text)
			case doc.RuleOp:
				pdf.SetDrawColor(o.Gray, o.Gray, o.Gray)
				pdf.SetLineWidth(0.5)
				pdf.Line(o.X1, o.Y1, o.X2, o.Y2)
			case doc.RectOp:
				pdf.SetDrawColor(o.Gray, o.Gray, o.Gray)
				pdf.SetLineWidth(0.5)
				pdf.Rect(o.X, o.Y, o.W, o.H, "D")
			case doc.ImageOp:
				if o.Photo < 0 || o.Photo >= len(photos) {
					return nil, fmt.Errorf("image op references photo %d of %d", o.Photo, len(photos))
				}
				pdf.ImageOptions(photoName(o.Photo), o.X, o.Y, o.W, o.H, false, opts, 0, "")
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func photoName(i int) string { return fmt.Sprintf("photo-%d", i) }

// ReportPDF decodes the report's photos, builds the document and
// renders it. A photo that fails to decode aborts the whole render;
// a half-rendered report is never produced.
func ReportPDF(r domain.Report) ([]byte, error) {
	photos, err := DecodePhotos(r.Photos)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", r.ID, err)
	}
	sizes := make([]doc.ImageSize, len(photos))
	for i, p := range photos {
		sizes[i] = doc.ImageSize{W: p.Width, H: p.Height}
	}
	d := doc.BuildReport(r, sizes, NewMeasurer())
	return RenderPDF(d, photos)
}

// InvoicePDF builds and renders an invoice.
func InvoicePDF(inv domain.Invoice, lookup doc.BankLookup) ([]byte, error) {
	d := doc.BuildInvoice(inv, lookup, NewMeasurer())
	return RenderPDF(d, nil)
}

// ReportFilename and InvoiceFilename follow the fixed naming scheme the
// recipients of these documents already expect.
func ReportFilename(r domain.Report) string {
	return fmt.Sprintf("Cleaning_Report_%s_%s.pdf", r.StaffName, r.Date)
}

func InvoiceFilename(inv domain.Invoice) string {
	return fmt.Sprintf("Invoice_%s_%s.pdf", inv.ClientName, inv.Date)
}
