package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cosigner/internal/api"
	"cosigner/internal/apiclient"
	"cosigner/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List transactions waiting to be relayed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Queue(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Program: %s  Processing: %s  Deploying: %s\n",
					titleLabel(resp.ProgramState), yesNo(resp.IsProcessing), yesNo(resp.IsDeploying))
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderPendingTable(resp.Items))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List processed transactions in completion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseHistoryStatus(statusFilter)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.History(cmd.Context())
				if err != nil {
					return err
				}
				if filter != "" {
					resp.Items = filterByStatus(resp.Items, filter)
					resp.Count = len(resp.Items)
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Count == 0 {
					fmt.Fprintln(out, "No transactions processed yet")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(resp.Items))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show confirmed or failed transactions")
	return cmd
}

// parseHistoryStatus validates a --status value. History only holds
// terminal items, so queued is rejected.
func parseHistoryStatus(value string) (queue.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	status, ok := queue.ParseStatus(value)
	if !ok || !status.IsTerminal() {
		return "", fmt.Errorf("invalid --status %q (use confirmed or failed)", value)
	}
	return status, nil
}

func filterByStatus(items []api.TransactionView, status queue.Status) []api.TransactionView {
	filtered := make([]api.TransactionView, 0, len(items))
	for _, item := range items {
		if item.Status == string(status) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				view, err := client.Transaction(cmd.Context(), args[0])
				if err != nil {
					if apiclient.StatusCode(err) == 404 {
						return fmt.Errorf("transaction %s not found", args[0])
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(transactionDetailLines(view), "\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderPendingTable(items []api.TransactionView) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.QueuePosition),
			item.ID,
			shortAddress(item.Requester),
			formatDisplayTime(item.EnqueuedAt),
		})
	}
	return renderTable([]string{"#", "ID", "Requester", "Enqueued"}, rows, []columnAlignment{alignRight})
}

func renderHistoryTable(items []api.TransactionView) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := shortAddress(item.Signature)
		finished := item.ConfirmedAt
		if item.Status == "failed" {
			detail = truncate(item.Error, 48)
			finished = item.FailedAt
		}
		rows = append(rows, []string{
			item.ID,
			titleLabel(item.Status),
			shortAddress(item.Requester),
			formatDisplayTime(finished),
			detail,
		})
	}
	return renderTable([]string{"ID", "Status", "Requester", "Finished", "Signature / Error"}, rows, nil)
}

func transactionDetailLines(view api.TransactionView) []string {
	lines := []string{
		fmt.Sprintf("ID:         %s", view.ID),
		fmt.Sprintf("Status:     %s", titleLabel(view.Status)),
		fmt.Sprintf("Requester:  %s", view.Requester),
		fmt.Sprintf("Enqueued:   %s", formatDisplayTime(view.EnqueuedAt)),
	}
	if view.QueuePosition > 0 {
		lines = append(lines, fmt.Sprintf("Position:   %d", view.QueuePosition))
	}
	if view.Signature != "" {
		lines = append(lines, fmt.Sprintf("Signature:  %s", view.Signature))
	}
	if view.ConfirmedAt != "" {
		lines = append(lines, fmt.Sprintf("Confirmed:  %s", formatDisplayTime(view.ConfirmedAt)))
	}
	if view.FailedAt != "" {
		lines = append(lines, fmt.Sprintf("Failed:     %s", formatDisplayTime(view.FailedAt)))
	}
	if view.Error != "" {
		lines = append(lines, fmt.Sprintf("Error:      %s", view.Error))
	}
	return lines
}

func formatDisplayTime(value string) string {
	ts := api.ParseTime(value)
	if ts.IsZero() {
		return value
	}
	return ts.Local().Format(time.DateTime)
}

// shortAddress abbreviates base58 keys and signatures for table columns.
func shortAddress(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 12 {
		return value
	}
	return value[:4] + ".." + value[len(value)-4:]
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
