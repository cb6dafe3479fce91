/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package doc composes reports and invoices into positioned draw
// operations on fixed-size pages. Builders are pure functions of their
// input plus a layout.Measurer; actual PDF bytes are produced by
// internal/export from the resulting Document.
package doc

import "cleanreport/internal/layout"

// Op is a single draw operation in page coordinates (points, top-left
// origin). Text y values are baselines, matching the PDF text model.
type Op interface{ op() }

// TextOp draws a single line of text.
type TextOp struct {
	X, Y float64
	Text string
	Font layout.Font
}

// RuleOp draws a horizontal or vertical hairline.
type RuleOp struct {
	X1, Y1, X2, Y2 float64
	Gray           int // 0..255 stroke level
}

// RectOp outlines a rectangle.
type RectOp struct {
	X, Y, W, H float64
	Gray       int
}

// ImageOp places photo number Photo (index into the document's photo
// sequence) scaled to W×H.
type ImageOp struct {
	X, Y, W, H float64
	Photo      int
}

func (TextOp) op()  {}
func (RuleOp) op()  {}
func (RectOp) op()  {}
func (ImageOp) op() {}

// Page is one fixed-size page worth of operations, in draw order.
type Page struct {
	Ops []Op
}

// Document is the built output: pages plus metadata for the renderer.
type Document struct {
	Title string
	Pages []Page
}

// ImageSize carries the intrinsic pixel dimensions of a decoded photo.
// The grid paginator only needs dimensions, not pixels.
type ImageSize struct {
	W, H int
}

// writer accumulates ops onto the current page with a vertical cursor.
type writer struct {
	d   *Document
	cur layout.Cursor
}

func newWriter(title string) *writer {
	w := &writer{d: &Document{Title: title}}
	w.newPage()
	return w
}

func (w *writer) page() *Page { return &w.d.Pages[len(w.d.Pages)-1] }

func (w *writer) newPage() {
	w.d.Pages = append(w.d.Pages, Page{})
	w.cur = layout.NewCursor()
}

func (w *writer) text(x float64, s string, f layout.Font) {
	w.page().Ops = append(w.page().Ops, TextOp{X: x, Y: w.cur.Y, Text: s, Font: f})
}

// textLines draws wrapped lines starting at the cursor, advancing lineH
// per line, and returns the number of lines drawn.
func (w *writer) textLines(x float64, lines []string, f layout.Font, lineH float64) int {
	for _, ln := range lines {
		w.text(x, ln, f)
		w.cur.Advance(lineH)
	}
	return len(lines)
}

func (w *writer) rule(x1, x2 float64, gray int) {
	w.page().Ops = append(w.page().Ops, RuleOp{X1: x1, Y1: w.cur.Y, X2: x2, Y2: w.cur.Y, Gray: gray})
}
