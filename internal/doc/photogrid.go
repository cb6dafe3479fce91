/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package doc

import (
	"math"

	"cleanreport/internal/layout"
)

// Photo grid geometry. The grid never grows past gridMaxPages pages;
// photos beyond capacity are dropped, which the plan records.
const (
	gridMaxPages = 2
	gridCols     = 3
	gridGap      = 8.0
	gridTitleH   = 16.0
	gridMinCellH = 50.0
	gridBorder   = 230 // light gray cell outline
)

// GridPlan is the deterministic layout decision for a photo count:
// uniform cell size, row count per page, and how many pages are used.
type GridPlan struct {
	Rows    int
	PerPage int
	Pages   int
	CellW   float64
	CellH   float64
	Placed  int
	Dropped int
}

// PlanPhotoGrid computes the grid for total photos. Rows are the minimum
// needed to fit everything on at most two 3-column pages; cell height is
// the usable height split across those rows, floored at a minimum.
func PlanPhotoGrid(total int) GridPlan {
	usableW := layout.UsableWidth
	usableH := layout.PageHeight - 2*layout.Margin - gridTitleH

	cellW := math.Floor((usableW - gridGap*(gridCols-1)) / gridCols)

	rows := int(math.Ceil(float64(total) / float64(gridCols*gridMaxPages)))
	if rows < 1 {
		rows = 1
	}
	cellH := math.Floor((usableH - gridGap*float64(rows-1)) / float64(rows))
	if cellH < gridMinCellH {
		cellH = gridMinCellH
	}

	pages := int(math.Ceil(float64(total) / float64(gridCols*rows)))
	if pages > gridMaxPages {
		pages = gridMaxPages
	}
	if pages < 1 {
		pages = 0
	}

	p := GridPlan{
		Rows:    rows,
		PerPage: gridCols * rows,
		Pages:   pages,
		CellW:   cellW,
		CellH:   cellH,
	}
	p.Placed = pages * p.PerPage
	if p.Placed > total {
		p.Placed = total
	}
	p.Dropped = total - p.Placed
	return p
}

// appendPhotoPages adds the photo grid pages to d. Placement is
// row-major, left to right then top to bottom, filling pages in order.
// Each image is scaled uniformly to fit its cell and centered on both
// axes, with the cell outlined behind it.
func appendPhotoPages(d *Document, sizes []ImageSize) GridPlan {
	plan := PlanPhotoGrid(len(sizes))
	bold12 := layout.Font{Style: layout.StyleBold, SizePt: 12}

	placed := 0
	for page := 0; page < plan.Pages; page++ {
		pg := Page{}
		pg.Ops = append(pg.Ops, TextOp{X: layout.Margin, Y: layout.Margin, Text: "Photos", Font: bold12})

		for j := 0; j < plan.PerPage && placed < len(sizes); j++ {
			row := j / gridCols
			col := j % gridCols
			x := layout.Margin + float64(col)*(plan.CellW+gridGap)
			y := layout.Margin + gridTitleH + float64(row)*(plan.CellH+gridGap)

			sz := sizes[placed]
			iw, ih := float64(sz.W), float64(sz.H)
			if iw <= 0 {
				iw = 1
			}
			if ih <= 0 {
				ih = 1
			}
			scale := math.Min(plan.CellW/iw, plan.CellH/ih)
			w := iw * scale
			h := ih * scale

			pg.Ops = append(pg.Ops,
				RectOp{X: x, Y: y, W: plan.CellW, H: plan.CellH, Gray: gridBorder},
				ImageOp{
					X:     x + (plan.CellW-w)/2,
					Y:     y + (plan.CellH-h)/2,
					W:     w,
					H:     h,
					Photo: placed,
				},
			)
			placed++
		}
		d.Pages = append(d.Pages, pg)
	}
	return plan
}
