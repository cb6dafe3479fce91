/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"sync"
	"time"
)

// Scheduler debounces snapshot pushes: each Schedule call restarts the
// quiet timer, so a burst of edits results in one push after the last
// edit settles. The push callback runs on the timer goroutine.
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	delay   time.Duration
	push    func()
	stopped bool
}

// NewScheduler creates a debounce scheduler. delay <= 0 falls back to
// 800ms, the interval the app tunes around.
func NewScheduler(delay time.Duration, push func()) *Scheduler {
	if delay <= 0 {
		delay = 800 * time.Millisecond
	}
	return &Scheduler{delay: delay, push: push}
}

// Schedule arms (or re-arms) the timer. Calls after Stop are ignored.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Flush cancels any pending timer and pushes immediately.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.push()
}

// Stop cancels any pending push and disables the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.push()
}
