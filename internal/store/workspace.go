/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"cleanreport/internal/domain"
)

const (
	ReportsFileName  = "reports.json"
	InvoicesFileName = "invoices.json"
	PresetsFileName  = "presets.json"
	BanksFileName    = "bank_accounts.json"
	DeviceFileName   = "device.json"
	BackupsDirName   = "backups"
)

// Device is the per-install state: a stable workspace id used as the
// server-side sync key, plus the local unlock flag.
type Device struct {
	WorkspaceID string `json:"workspaceId"`
	Authed      bool   `json:"authed"`
}

// Workspace keeps the operator's records loaded/saved from disk. Root is
// the workspace directory containing the record files and a backups
// subfolder.
type Workspace struct {
	Root string

	// Fresh reports that Open generated a new device identity, i.e.
	// this directory had never been used as a workspace before.
	Fresh bool

	Device   Device
	Reports  []domain.Report
	Invoices []domain.Invoice
	Presets  []domain.Preset
	Banks    []domain.BankAccount
}

// Open loads a workspace from root, creating the directory and a fresh
// device identity on first use. A record file that cannot be read or
// parsed falls back to its latest timestamped backup; a missing file is
// an empty collection.
func Open(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create backups dir: %w", err)
	}

	ws := &Workspace{Root: root}
	if err := loadRecords(root, DeviceFileName, &ws.Device); err != nil {
		return nil, err
	}
	if ws.Device.WorkspaceID == "" {
		ws.Device.WorkspaceID = uuid.NewString()
		ws.Fresh = true
		if err := ws.saveFile(DeviceFileName, &ws.Device); err != nil {
			return nil, err
		}
	}
	if err := loadRecords(root, ReportsFileName, &ws.Reports); err != nil {
		return nil, err
	}
	if err := loadRecords(root, InvoicesFileName, &ws.Invoices); err != nil {
		return nil, err
	}
	if err := loadRecords(root, PresetsFileName, &ws.Presets); err != nil {
		return nil, err
	}
	if err := loadRecords(root, BanksFileName, &ws.Banks); err != nil {
		return nil, err
	}
	return ws, nil
}

// Snapshot returns the workspace contents as a sync payload. Nil slices
// are normalized to empty so the JSON arrays are always present.
func (ws *Workspace) Snapshot() domain.Snapshot {
	s := domain.Snapshot{
		Reports:      ws.Reports,
		Invoices:     ws.Invoices,
		Presets:      ws.Presets,
		BankAccounts: ws.Banks,
		UpdatedAt:    time.Now().UnixMilli(),
	}
	if s.Reports == nil {
		s.Reports = []domain.Report{}
	}
	if s.Invoices == nil {
		s.Invoices = []domain.Invoice{}
	}
	if s.Presets == nil {
		s.Presets = []domain.Preset{}
	}
	if s.BankAccounts == nil {
		s.BankAccounts = []domain.BankAccount{}
	}
	return s
}

// Replace overwrites the local collections from a pulled snapshot and
// persists them. A nil slice in the snapshot leaves the corresponding
// local collection untouched.
func (ws *Workspace) Replace(s *domain.Snapshot) error {
	if s == nil {
		return nil
	}
	if s.Reports != nil {
		ws.Reports = s.Reports
		if err := ws.SaveReports(); err != nil {
			return err
		}
	}
	if s.Invoices != nil {
		ws.Invoices = s.Invoices
		if err := ws.SaveInvoices(); err != nil {
			return err
		}
	}
	if s.Presets != nil {
		ws.Presets = s.Presets
		if err := ws.SavePresets(); err != nil {
			return err
		}
	}
	if s.BankAccounts != nil {
		ws.Banks = s.BankAccounts
		if err := ws.SaveBanks(); err != nil {
			return err
		}
	}
	return nil
}

func (ws *Workspace) SaveReports() error  { return ws.saveFile(ReportsFileName, ws.Reports) }
func (ws *Workspace) SaveInvoices() error { return ws.saveFile(InvoicesFileName, ws.Invoices) }
func (ws *Workspace) SavePresets() error  { return ws.saveFile(PresetsFileName, ws.Presets) }
func (ws *Workspace) SaveBanks() error    { return ws.saveFile(BanksFileName, ws.Banks) }
func (ws *Workspace) SaveDevice() error   { return ws.saveFile(DeviceFileName, &ws.Device) }

// SaveAll persists every collection. Used by crash recovery to flush
// whatever is in memory before the process dies.
func (ws *Workspace) SaveAll() error {
	for _, save := range []func() error{
		ws.SaveReports, ws.SaveInvoices, ws.SavePresets, ws.SaveBanks, ws.SaveDevice,
	} {
		if err := save(); err != nil {
			return err
		}
	}
	return nil
}

// saveFile writes a record file with transactional semantics and a
// timestamped backup of the previous contents (if present).
func (ws *Workspace) saveFile(name string, v any) error {
	if ws.Root == "" {
		return errors.New("workspace has no root")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(ws.Root, name)
	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", name, stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup %s: %w", name, cerr)
		}
	}

	// Transactional write: temp file in same directory, then rename over target.
	temp := filepath.Join(ws.Root, fmt.Sprintf(".%s.tmp-%d-%d", name, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp %s: %w", name, werr)
	}
	// On Windows, replace by removing destination first if needed.
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", name, rerr)
	}
	return nil
}

func loadRecords(root, name string, v any) error {
	path := filepath.Join(root, name)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if berr := loadFromLatestBackup(root, name, v); berr != nil {
			return fmt.Errorf("read %s: %w; backup attempt: %v", name, err, berr)
		}
		return nil
	}
	if uerr := json.Unmarshal(b, v); uerr != nil {
		if berr := loadFromLatestBackup(root, name, v); berr != nil {
			return fmt.Errorf("parse %s: %w; backup attempt: %v", name, uerr, berr)
		}
	}
	return nil
}

func loadFromLatestBackup(root, name string, v any) error {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, name+".") && strings.HasSuffix(n, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, n))
		}
	}
	if len(candidates) == 0 {
		return errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return fmt.Errorf("read latest backup: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse latest backup: %w", err)
	}
	return nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}
