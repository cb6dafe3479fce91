/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package deliver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DownloadStrategy saves the PDF to the operator's download directory.
// The file is preserved but nobody received it, so it reports not
// delivered and the chain result tells the caller to hand it over
// manually.
type DownloadStrategy struct {
	Dir string

	// LastPath records where the file landed, for the caller to show.
	LastPath string
}

func (s *DownloadStrategy) Name() string { return "download" }

func (s *DownloadStrategy) Attempt(ctx context.Context, att *Attachment) (bool, error) {
	dir := s.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false, fmt.Errorf("resolve home: %w", err)
		}
		dir = filepath.Join(home, "Downloads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, att.Filename)
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return false, fmt.Errorf("write download: %w", err)
	}
	s.LastPath = path
	return false, nil
}
