/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanreport/internal/domain"
)

func TestOpenCreatesDeviceIdentity(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root)
	require.NoError(t, err)
	require.NotEmpty(t, ws.Device.WorkspaceID)
	assert.False(t, ws.Device.Authed)
	assert.True(t, ws.Fresh, "first open generates the identity")

	// Reopening yields the same identity and is no longer fresh.
	ws2, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, ws.Device.WorkspaceID, ws2.Device.WorkspaceID)
	assert.False(t, ws2.Fresh)
}

func TestSaveAndReload(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root)
	require.NoError(t, err)

	ws.Reports = []domain.Report{{ID: 1723530000000, Date: "2025-08-13", StaffName: "Jo", Summary: "done"}}
	ws.Banks = []domain.BankAccount{{ID: "b1", BankName: "Monzo", AccountName: "J Smith"}}
	require.NoError(t, ws.SaveReports())
	require.NoError(t, ws.SaveBanks())

	ws2, err := Open(root)
	require.NoError(t, err)
	require.Len(t, ws2.Reports, 1)
	assert.Equal(t, "Jo", ws2.Reports[0].StaffName)
	require.Len(t, ws2.Banks, 1)
	assert.Equal(t, "Monzo", ws2.Banks[0].BankName)
}

func TestSaveKeepsTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root)
	require.NoError(t, err)

	ws.Reports = []domain.Report{{ID: 1, StaffName: "a"}}
	require.NoError(t, ws.SaveReports())
	ws.Reports = []domain.Report{{ID: 2, StaffName: "b"}}
	require.NoError(t, ws.SaveReports())

	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	require.NoError(t, err)
	found := false
	for _, e := range ents {
		if len(e.Name()) > len(ReportsFileName) && e.Name()[:len(ReportsFileName)] == ReportsFileName {
			found = true
		}
	}
	assert.True(t, found, "expected a reports.json backup")
}

func TestCorruptFileFallsBackToBackup(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root)
	require.NoError(t, err)

	ws.Invoices = []domain.Invoice{{ID: 42, ClientName: "Acme"}}
	require.NoError(t, ws.SaveInvoices())
	// Second save creates a backup of the good file.
	require.NoError(t, ws.SaveInvoices())

	require.NoError(t, os.WriteFile(filepath.Join(root, InvoicesFileName), []byte("{nope"), 0o644))

	ws2, err := Open(root)
	require.NoError(t, err)
	require.Len(t, ws2.Invoices, 1)
	assert.Equal(t, "Acme", ws2.Invoices[0].ClientName)
}

func TestSnapshotNormalizesNilSlices(t *testing.T) {
	ws := &Workspace{}
	s := ws.Snapshot()
	assert.NotNil(t, s.Reports)
	assert.NotNil(t, s.Invoices)
	assert.NotNil(t, s.Presets)
	assert.NotNil(t, s.BankAccounts)
	assert.NotZero(t, s.UpdatedAt)
}

func TestReplaceSkipsNilCollections(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root)
	require.NoError(t, err)
	ws.Reports = []domain.Report{{ID: 1}}
	require.NoError(t, ws.SaveReports())

	require.NoError(t, ws.Replace(&domain.Snapshot{Presets: []domain.Preset{{SiteName: "Office"}}}))
	assert.Len(t, ws.Reports, 1, "nil snapshot slice must not clear local data")
	require.Len(t, ws.Presets, 1)
	assert.Equal(t, "Office", ws.Presets[0].SiteName)
}
