/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// BasicMeasurer measures with the fixed-width basicfont Face7x13, scaled
// to the requested point size. It exists for deterministic tests and as a
// fallback when no PDF engine is loaded; production rendering uses the
// gofpdf-backed measurer in internal/export.
type BasicMeasurer struct{}

func (BasicMeasurer) TextWidth(s string, f Font) float64 {
	d := &font.Drawer{Face: basicfont.Face7x13}
	px := float64(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
	size := f.SizePt
	if size <= 0 {
		size = 12
	}
	// Face7x13 is drawn for roughly 13px line height; scale advance to pt.
	return px * size / 13.0
}
