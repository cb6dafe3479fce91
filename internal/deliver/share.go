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
	"os/exec"
	"path/filepath"
	"strings"
)

// ShareStrategy hands the PDF to an external share handler, the
// platform's native share sheet or whatever command the operator
// configured. Not configured or not installed means not available, which
// is a silent skip rather than an error.
type ShareStrategy struct {
	Command string
}

func (s *ShareStrategy) Name() string { return "share" }

func (s *ShareStrategy) Attempt(ctx context.Context, att *Attachment) (bool, error) {
	cmd := strings.TrimSpace(s.Command)
	if cmd == "" {
		return false, nil
	}
	parts := strings.Fields(cmd)
	if _, err := exec.LookPath(parts[0]); err != nil {
		return false, nil
	}

	dir, err := os.MkdirTemp("", "cleanreport-share-")
	if err != nil {
		return false, fmt.Errorf("share temp dir: %w", err)
	}
	path := filepath.Join(dir, att.Filename)
	if err := os.WriteFile(path, att.Data, 0o600); err != nil {
		return false, fmt.Errorf("write share file: %w", err)
	}

	args := append(parts[1:], path)
	c := exec.CommandContext(ctx, parts[0], args...)
	if out, err := c.CombinedOutput(); err != nil {
		return false, fmt.Errorf("share handler: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return true, nil
}
