/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

// Deterministic page-layout primitives shared by the document builders.
// All text measurement sits behind the Measurer interface so the builders
// stay pure and testable with a fixed-metrics implementation.

import "strings"

// A4 page geometry in points, origin top-left.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
	Margin     = 48.0
)

// UsableWidth is the writable width between the side margins.
const UsableWidth = PageWidth - 2*Margin

// Styles understood by the renderers. They mirror gofpdf style strings.
const (
	StyleRegular = ""
	StyleBold    = "B"
)

// Font is a resolved text style for measurement and drawing.
type Font struct {
	Style  string // StyleRegular or StyleBold
	SizePt float64
}

// Measurer reports the rendered width of a string in points.
// Implementations must be deterministic for identical input.
type Measurer interface {
	TextWidth(s string, f Font) float64
}

// Wrap breaks text into lines no wider than maxWidth, splitting only at
// word boundaries. Hard newlines are respected. A single word wider than
// maxWidth is emitted on its own line and overflows rather than being
// split mid-word.
func Wrap(m Measurer, f Font, text string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(m, f, para, maxWidth)...)
	}
	if lines == nil {
		lines = []string{""}
	}
	return lines
}

func wrapParagraph(m Measurer, f Font, para string, maxWidth float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		cand := cur + " " + w
		if maxWidth > 0 && m.TextWidth(cand, f) > maxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = cand
	}
	return append(lines, cur)
}

// Cursor tracks the monotonically advancing vertical position on a page.
// A fresh cursor starts at the top margin; it never rewinds.
type Cursor struct {
	Y float64
}

// NewCursor returns a cursor positioned at the top margin.
func NewCursor() Cursor { return Cursor{Y: Margin} }

// Advance moves the cursor down by dy points.
func (c *Cursor) Advance(dy float64) { c.Y += dy }

// Fits reports whether a block of the given height still fits above the
// bottom margin. Builders call this before drawing to decide on a break.
func (c *Cursor) Fits(height float64) bool {
	return c.Y+height <= PageHeight-Margin
}

// Remaining returns the writable height left below the cursor.
func (c *Cursor) Remaining() float64 { return PageHeight - Margin - c.Y }
