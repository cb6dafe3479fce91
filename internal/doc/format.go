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
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbPrinter = message.NewPrinter(language.BritishEnglish)

// GBP renders an amount with the en-GB currency format, e.g. "£1,234.56".
func GBP(v float64) string {
	return gbPrinter.Sprintf("£%.2f", v)
}

// Ordinal returns the English ordinal form of n: 1st, 2nd, 3rd, 4th...
// 11, 12 and 13 always take "th"; above 20 the last digit rules again.
func Ordinal(n int) string {
	suffix := "th"
	if v := n % 100; v < 11 || v > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// DateLongEnglish renders an ISO date as long-form English, e.g.
// "August 13th, 2025". Empty input yields empty output; anything that
// fails to parse is returned unchanged rather than erroring.
func DateLongEnglish(iso string) string {
	if iso == "" {
		return ""
	}
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%s %s, %d", d.Month(), Ordinal(d.Day()), d.Year())
}

// SummaryTemplate produces the default summary paragraph for a report.
// Missing fields render as literal placeholders so the operator sees
// what still needs filling in.
func SummaryTemplate(staffName, isoDate string) string {
	staff := staffName
	if staff == "" {
		staff = "[Staff Name]"
	}
	date := DateLongEnglish(isoDate)
	if date == "" {
		date = "[Date]"
	}
	return fmt.Sprintf("On %s, cleaning staff member %s carried out cleaning tasks in the following areas using appropriate machinery and equipment. The work included floor cleaning and dust removal with the machine.", date, staff)
}
