/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"cleanreport/internal/doc"
	"cleanreport/internal/domain"
)

func encodeTestImage(t *testing.T, w, h int, asPNG bool) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	var err error
	if asPNG {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodePhotoJPEGPassthrough(t *testing.T) {
	payload := "data:image/jpeg;base64," + encodeTestImage(t, 40, 30, false)
	p, err := DecodePhoto(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Width != 40 || p.Height != 30 {
		t.Fatalf("size %dx%d, want 40x30", p.Width, p.Height)
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(p.JPEG)); err != nil {
		t.Fatalf("payload is not jpeg: %v", err)
	}
}

func TestDecodePhotoPNGReencoded(t *testing.T) {
	p, err := DecodePhoto(encodeTestImage(t, 20, 20, true))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(p.JPEG)); err != nil {
		t.Fatalf("png was not normalized to jpeg: %v", err)
	}
}

func TestDecodePhotoGarbageFails(t *testing.T) {
	if _, err := DecodePhoto(base64.StdEncoding.EncodeToString([]byte("not an image"))); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodePhotos([]string{"%%%not-base64%%%"}); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestReportPDFOutput(t *testing.T) {
	r := domain.Report{
		ID:        1,
		Date:      "2025-08-13",
		StaffName: "Gustavo",
		Summary:   "Short summary.",
		Areas:     []domain.Area{{SiteName: "Saxon House", Sections: []string{"Area 1-77"}}},
		Photos: []string{
			"data:image/jpeg;base64," + encodeTestImage(t, 60, 40, false),
			encodeTestImage(t, 30, 50, true),
		},
	}
	out, err := ReportPDF(r)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestReportPDFBadPhotoIsFatal(t *testing.T) {
	r := domain.Report{
		ID:     2,
		Date:   "2025-08-13",
		Photos: []string{base64.StdEncoding.EncodeToString([]byte("junk"))},
	}
	if _, err := ReportPDF(r); err == nil {
		t.Fatalf("undecodable photo must fail the whole render")
	}
}

func TestInvoicePDFOutput(t *testing.T) {
	inv := domain.Invoice{
		ID: 3, Date: "2025-08-13", ClientName: "Saxon House",
		Items:         []domain.InvoiceItem{{Description: "Weekly clean", Amount: 120}},
		PaymentMethod: domain.PayCash,
	}
	out, err := InvoicePDF(inv, func(string) (domain.BankAccount, bool) { return domain.BankAccount{}, false })
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestRenderPDFRejectsDanglingImageRef(t *testing.T) {
	d := doc.Document{Pages: []doc.Page{{Ops: []doc.Op{doc.ImageOp{Photo: 0, W: 10, H: 10}}}}}
	if _, err := RenderPDF(d, nil); err == nil {
		t.Fatalf("expected error for image op without photo")
	}
}

func TestFilenames(t *testing.T) {
	r := domain.Report{StaffName: "Gustavo", Date: "2025-08-13"}
	if got := ReportFilename(r); got != "Cleaning_Report_Gustavo_2025-08-13.pdf" {
		t.Fatalf("report filename = %q", got)
	}
	inv := domain.Invoice{ClientName: "Saxon House", Date: "2025-08-13"}
	if got := InvoiceFilename(inv); !strings.HasPrefix(got, "Invoice_Saxon House_") {
		t.Fatalf("invoice filename = %q", got)
	}
}
