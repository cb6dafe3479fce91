/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cleanreport/internal/app"
	"cleanreport/internal/backend"
	"cleanreport/internal/config"
	"cleanreport/internal/crash"
	"cleanreport/internal/deliver"
	applog "cleanreport/internal/log"
	"cleanreport/internal/store"
	"cleanreport/internal/telemetry"
	"cleanreport/internal/version"
)

func main() {
	applog.Init(applog.FromEnv())
	telemetry.InitDefault()

	root := &cobra.Command{
		Use:           "cleanreport",
		Short:         "Cleaning-job reports and invoices as PDFs, synced across devices",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		serveCmd(),
		loginCmd(),
		logoutCmd(),
		reportCmd(),
		invoiceCmd(),
		syncCmd(),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openService loads config and the workspace and wires the service. The
// returned cleanup flushes pending pushes.
func openService() (*app.Service, func(), error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	dir, err := cfg.WorkspaceDir()
	if err != nil {
		return nil, nil, err
	}
	ws, err := store.Open(dir)
	if err != nil {
		return nil, nil, err
	}

	var client *backend.Client
	if cfg.Backend.BaseURL != "" {
		client, err = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout())
		if err != nil {
			return nil, nil, err
		}
	}

	prompt := stdinPrompter()
	chain := deliver.NewChain(
		&deliver.ShareStrategy{Command: cfg.Delivery.ShareCommand},
		&deliver.RelayStrategy{Client: client, Prompt: prompt},
		&deliver.TokenRelayStrategy{
			URL:    cfg.Delivery.SMTPRelayURL,
			Token:  token,
			From:   cfg.Delivery.SMTPFrom,
			Prompt: prompt,
		},
		&deliver.DownloadStrategy{Dir: cfg.Delivery.DownloadDir},
	)

	svc := app.New(app.Options{
		Workspace: ws,
		Client:    client,
		Chain:     chain,
		Debounce:  cfg.Sync.Debounce(),
	})
	if ws.Fresh {
		// First run in this workspace directory: pull once so a second
		// device starts from the server snapshot instead of empty state.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
		svc.Init(ctx)
		cancel()
	}
	return svc, svc.Close, nil
}

// requireAuth opens the service and rejects commands until login.
func requireAuth() (*app.Service, func(), error) {
	svc, done, err := openService()
	if err != nil {
		return nil, nil, err
	}
	if !svc.Authed() {
		done()
		return nil, nil, fmt.Errorf("not logged in; run 'cleanreport login' first")
	}
	return svc, done, nil
}

func stdinPrompter() deliver.Prompter {
	return func(ctx context.Context) (string, error) {
		fmt.Print("Recipient email (empty to skip): ")
		r := bufio.NewReader(os.Stdin)
		line, err := r.ReadString('\n')
		if err != nil {
			return "", nil
		}
		return strings.TrimSpace(line), nil
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync and email relay backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer crash.Recover(nil)
			return backend.Start()
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Unlock the workspace on this device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := openService()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())
			if err := svc.Login(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Logged in.")
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Lock the workspace on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := openService()
			if err != nil {
				return err
			}
			defer done()
			return svc.Logout()
		},
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with cleaning reports",
	}
	cmd.AddCommand(reportNewCmd(), reportListCmd(), reportDeleteCmd(), reportPDFCmd(), reportSendCmd())
	return cmd
}

func reportNewCmd() *cobra.Command {
	var (
		date    string
		staff   string
		summary string
		notes   string
		areas   []string
		photos  []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Submit a new cleaning report",
		Long: "Areas are given as 'Site:section,section'. Photos are paths to\n" +
			"image files (png, jpeg or webp).",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())

			r, err := buildReportInput(date, staff, summary, notes, areas, photos)
			if err != nil {
				return err
			}
			saved, err := svc.SubmitReport(r)
			if err != nil {
				return err
			}
			fmt.Printf("Report %d saved.\n", saved.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", time.Now().Format("2006-01-02"), "Report date (YYYY-MM-DD)")
	f.StringVar(&staff, "staff", "", "Staff name")
	f.StringVar(&summary, "summary", "", "Summary text (templated when empty)")
	f.StringVar(&notes, "notes", "", "Additional notes")
	f.StringArrayVar(&areas, "area", nil, "Area as 'Site:section,section' (repeatable)")
	f.StringArrayVar(&photos, "photo", nil, "Photo file path (repeatable)")
	return cmd
}

func reportListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			for _, r := range svc.Reports() {
				fmt.Printf("%d\t%s\t%s\t%d area(s), %d photo(s)\n",
					r.ID, r.Date, r.StaffName, len(r.Areas), len(r.Photos))
			}
			return nil
		},
	}
}

func reportDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			return svc.DeleteReport(id)
		},
	}
}

func reportPDFCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Render a report to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())
			data, name, err := svc.ReportPDF(id)
			if err != nil {
				return err
			}
			return writePDF(out, name, data)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (defaults to the generated filename)")
	return cmd
}

func reportSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <id>",
		Short: "Send a report through the delivery chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())
			strategy, delivered, err := svc.SendReport(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDeliveryResult(strategy, delivered)
			return nil
		},
	}
}

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Work with invoices",
	}
	cmd.AddCommand(invoiceNewCmd(), invoiceListCmd(), invoiceDeleteCmd(), invoicePDFCmd(), invoiceSendCmd())
	return cmd
}

func invoiceNewCmd() *cobra.Command {
	var (
		date    string
		client  string
		address string
		items   []string
		method  string
		bankID  string
		notes   string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new invoice",
		Long:  "Items are given as 'description=amount', e.g. 'Deep clean=80.00'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())

			inv, err := buildInvoiceInput(date, client, address, items, method, bankID, notes)
			if err != nil {
				return err
			}
			saved, err := svc.CreateInvoice(inv)
			if err != nil {
				return err
			}
			fmt.Printf("Invoice %d saved, total %.2f.\n", saved.ID, saved.Total())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", time.Now().Format("2006-01-02"), "Invoice date (YYYY-MM-DD)")
	f.StringVar(&client, "client", "", "Client name")
	f.StringVar(&address, "address", "", "Client address")
	f.StringArrayVar(&items, "item", nil, "Item as 'description=amount' (repeatable)")
	f.StringVar(&method, "method", "cash", "Payment method: cash or bank")
	f.StringVar(&bankID, "bank", "", "Bank account id (required with --method bank)")
	f.StringVar(&notes, "notes", "", "Invoice notes")
	return cmd
}

func invoiceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			for _, inv := range svc.Invoices() {
				fmt.Printf("%d\t%s\t%s\t%.2f\t%s\n",
					inv.ID, inv.Date, inv.ClientName, inv.Total(), inv.PaymentMethod)
			}
			return nil
		},
	}
}

func invoiceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			return svc.DeleteInvoice(id)
		},
	}
}

func invoicePDFCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Render an invoice to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())
			data, name, err := svc.InvoicePDF(id)
			if err != nil {
				return err
			}
			return writePDF(out, name, data)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (defaults to the generated filename)")
	return cmd
}

func invoiceSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <id>",
		Short: "Send an invoice through the delivery chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, done, err := requireAuth()
			if err != nil {
				return err
			}
			defer done()
			defer crash.Recover(svc.Workspace())
			strategy, delivered, err := svc.SendInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDeliveryResult(strategy, delivered)
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize with the backend",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "now",
			Short: "Push the local snapshot immediately",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, done, err := requireAuth()
				if err != nil {
					return err
				}
				defer done()
				svc.Flush()
				fmt.Println("Push requested.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Pull the server snapshot and overwrite local state",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, done, err := requireAuth()
				if err != nil {
					return err
				}
				defer done()
				svc.Init(cmd.Context())
				fmt.Printf("%d report(s), %d invoice(s) local.\n",
					len(svc.Reports()), len(svc.Invoices()))
				return nil
			},
		},
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func writePDF(out, name string, data []byte) error {
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes).\n", out, len(data))
	return nil
}

func printDeliveryResult(strategy string, delivered bool) {
	if delivered {
		fmt.Printf("Sent via %s.\n", strategy)
		return
	}
	fmt.Printf("Not auto-sent; the PDF was saved locally (%s). Attach it manually.\n", strategy)
}
