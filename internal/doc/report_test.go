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
	"strings"
	"testing"

	"cleanreport/internal/domain"
	"cleanreport/internal/layout"
)

func pageText(p Page) string {
	var b strings.Builder
	for _, op := range p.Ops {
		if t, ok := op.(TextOp); ok {
			b.WriteString(t.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func docText(d Document) string {
	var b strings.Builder
	for _, p := range d.Pages {
		b.WriteString(pageText(p))
	}
	return b.String()
}

func sampleReport() domain.Report {
	return domain.Report{
		ID:        1700000000000,
		Date:      "2025-08-13",
		StaffName: "Gustavo",
		Summary:   SummaryTemplate("Gustavo", "2025-08-13"),
		Notes:     "Machine serviced before use.",
		Areas: []domain.Area{
			{SiteName: "Saxon House", Sections: []string{"Area 1-77", "  ", "Stairwell"}},
			{SiteName: "", Sections: []string{"Lobby"}},
		},
	}
}

func TestBuildReportHeaderAndAreas(t *testing.T) {
	d := BuildReport(sampleReport(), nil, layout.BasicMeasurer{})
	if len(d.Pages) == 0 {
		t.Fatalf("no pages built")
	}
	text := docText(d)
	for _, want := range []string{
		"Cleaning Report",
		"Date: August 13th, 2025",
		"Staff Name: Gustavo",
		"Summary of Work:",
		"Area cleaned:",
		"Saxon House",
		"Area 2", // empty site name defaults to its position
		"* Stairwell",
		"Additional Notes:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in built report", want)
		}
	}
	if strings.Contains(text, "*  ") {
		t.Errorf("blank sections must be skipped")
	}
}

func TestBuildReportBreaksBeforeCrowdedArea(t *testing.T) {
	r := sampleReport()
	r.Notes = ""
	r.Areas = nil
	for i := 0; i < 12; i++ {
		secs := make([]string, 6)
		for j := range secs {
			secs[j] = fmt.Sprintf("Zone %d-%d", i, j)
		}
		r.Areas = append(r.Areas, domain.Area{SiteName: fmt.Sprintf("Site %d", i), Sections: secs})
	}
	d := BuildReport(r, nil, layout.BasicMeasurer{})
	if len(d.Pages) < 2 {
		t.Fatalf("expected page breaks, got %d page(s)", len(d.Pages))
	}
	// No text op may sit below the writable area plus the safety slack a
	// single area block can legally occupy.
	for pi, p := range d.Pages {
		for _, op := range p.Ops {
			if tx, ok := op.(TextOp); ok && tx.Y > layout.PageHeight {
				t.Fatalf("page %d: text drawn off-page at y=%v", pi, tx.Y)
			}
		}
	}
}

func TestBuildReportPhotoPagesAppended(t *testing.T) {
	sizes := []ImageSize{{W: 400, H: 300}, {W: 300, H: 400}}
	d := BuildReport(sampleReport(), sizes, layout.BasicMeasurer{})
	last := d.Pages[len(d.Pages)-1]
	if !strings.Contains(pageText(last), "Photos") {
		t.Fatalf("photo page title missing")
	}
	images := 0
	for _, op := range last.Ops {
		if _, ok := op.(ImageOp); ok {
			images++
		}
	}
	if images != 2 {
		t.Fatalf("placed %d images, want 2", images)
	}
}

func TestBuildReportNoPhotosNoGrid(t *testing.T) {
	d := BuildReport(sampleReport(), nil, layout.BasicMeasurer{})
	if strings.Contains(docText(d), "Photos") {
		t.Fatalf("photo section must be skipped when there are no photos")
	}
}
