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

	"cleanreport/internal/domain"
	"cleanreport/internal/layout"
)

const (
	bodyLineH = 14.0

	// Remaining-space thresholds below which the builder starts a new
	// page before the next block.
	areaBreakThreshold  = 100.0
	notesBreakThreshold = 120.0
)

// BuildReport lays out a cleaning report: header, summary, per-area
// sections with page breaks, optional notes, then the photo grid.
// photoSizes must carry one entry per report photo, in order; the
// builder never touches pixel data.
func BuildReport(r domain.Report, photoSizes []ImageSize, m layout.Measurer) Document {
	title20 := layout.Font{Style: layout.StyleBold, SizePt: 20}
	bold18 := layout.Font{Style: layout.StyleBold, SizePt: 18}
	bold12 := layout.Font{Style: layout.StyleBold, SizePt: 12}
	body12 := layout.Font{Style: layout.StyleRegular, SizePt: 12}

	w := newWriter("Cleaning Report")

	w.text(layout.Margin, "Cleaning Report", title20)
	w.cur.Advance(24)

	w.text(layout.Margin, "Date: "+DateLongEnglish(r.Date), body12)
	w.cur.Advance(18)
	w.text(layout.Margin, "Staff Name: "+r.StaffName, body12)
	w.cur.Advance(24)

	w.text(layout.Margin, "Summary of Work:", bold12)
	w.cur.Advance(16)
	w.textLines(layout.Margin, layout.Wrap(m, body12, r.Summary, layout.UsableWidth), body12, bodyLineH)
	w.cur.Advance(16)

	w.text(layout.Margin, "Area cleaned:", bold18)
	w.cur.Advance(18)

	for i, area := range r.Areas {
		if w.cur.Remaining() < areaBreakThreshold {
			w.newPage()
		}
		title := strings.TrimSpace(area.SiteName)
		if title == "" {
			title = fmt.Sprintf("Area %d", i+1)
		}
		w.textLines(layout.Margin, layout.Wrap(m, bold12, title, layout.UsableWidth), bold12, bodyLineH)
		w.cur.Advance(6)

		for _, sec := range area.Sections {
			sec = strings.TrimSpace(sec)
			if sec == "" {
				continue
			}
			lines := layout.Wrap(m, body12, "* "+sec, layout.UsableWidth-12)
			w.textLines(layout.Margin+12, lines, body12, bodyLineH)
			w.cur.Advance(4)
		}
	}

	if strings.TrimSpace(r.Notes) != "" {
		if w.cur.Remaining() < notesBreakThreshold {
			w.newPage()
		}
		w.text(layout.Margin, "Additional Notes:", bold12)
		w.cur.Advance(16)
		w.textLines(layout.Margin, layout.Wrap(m, body12, r.Notes, layout.UsableWidth), body12, bodyLineH)
		w.cur.Advance(12)
	}

	if len(photoSizes) > 0 {
		appendPhotoPages(w.d, photoSizes)
	}
	return *w.d
}
