/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package deliver hands a finished PDF to the outside world. Strategies
// are tried in order; the first one that reports delivery wins. The
// final strategy always writes the file to disk so the document is never
// lost, even when every outbound channel fails.
package deliver

import (
	"context"

	applog "cleanreport/internal/log"
)

// Attachment is the unit of delivery: one rendered PDF plus the message
// around it.
type Attachment struct {
	Filename string
	Data     []byte
	Subject  string
	Body     string
}

// Strategy attempts one delivery channel. delivered reports whether the
// attachment reached a recipient; an error explains a failed attempt.
// A strategy may return (false, nil) when it is not available or acted
// only as a local fallback.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, att *Attachment) (delivered bool, err error)
}

// Chain runs strategies in order until one delivers.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Deliver tries each strategy in order. It returns the name of the
// strategy that delivered and true, or the name of the last strategy
// tried and false when nothing reached a recipient. Attempt errors are
// logged and treated as "try the next one".
func (c *Chain) Deliver(ctx context.Context, att *Attachment) (string, bool) {
	log := applog.WithComponent("deliver")
	last := ""
	for _, s := range c.strategies {
		last = s.Name()
		delivered, err := s.Attempt(ctx, att)
		if err != nil {
			log.Warn("delivery attempt failed", "strategy", s.Name(), "file", att.Filename, "error", err)
			continue
		}
		if delivered {
			log.Info("delivered", "strategy", s.Name(), "file", att.Filename)
			return s.Name(), true
		}
	}
	return last, false
}
