package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/server/endpoints"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <file>",
	Short: "Apply an audit report from a file",
	Long: `Apply an audit report from a file, or from stdin when the file is "-".

The file holds the same document the audit returner posts to /audit:

  {"timestamp": "2024-05-01T10:00:00Z", "changed": true, "properties": {...}}

The resulting report is printed as JSON. The command fails unless the
reason is "ok".

Example:
  inventoryctl audit /var/cache/salt/inventory/web01.json
  salt-call --local inventory.audit --out=json | inventoryctl audit -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readAuditRequest(cmd, args[0])
		if err != nil {
			return err
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		report := a.auditor.Audit(cmd.Context(), req.Timestamp, req.Properties, req.Changed)
		return printReport(cmd, report, report.Outcome)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func readAuditRequest(cmd *cobra.Command, name string) (endpoints.AuditRequest, error) {
	var req endpoints.AuditRequest

	var r io.Reader = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return req, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return req, nil
}

func printReport(cmd *cobra.Command, report interface{}, outcome inventory.Outcome) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !outcome.OK() {
		return fmt.Errorf("%s: %w", outcome.Reason, outcome.Err)
	}
	return nil
}
