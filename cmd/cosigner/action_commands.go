package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cosigner/internal/apiclient"
	"cosigner/internal/ledger"
	"cosigner/internal/program"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var file string
	var payload string
	var requester string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a partially signed transaction for cosigning",
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := resolvePayload(file, payload)
			if err != nil {
				return err
			}
			if strings.TrimSpace(requester) == "" {
				return errors.New("--requester is required")
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Submit(cmd.Context(), encoded, requester)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s at position %d\n", resp.ID, resp.QueuePosition)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File holding the transaction (raw wire bytes or base64)")
	cmd.Flags().StringVar(&payload, "payload", "", "Base64 encoded transaction")
	cmd.Flags().StringVar(&requester, "requester", "", "Address of the submitting wallet")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// resolvePayload returns the base64 payload from --payload or --file. File
// contents are used verbatim when they are valid base64 text, otherwise they
// are treated as raw wire bytes.
func resolvePayload(file, payload string) (string, error) {
	file = strings.TrimSpace(file)
	payload = strings.TrimSpace(payload)
	switch {
	case file != "" && payload != "":
		return "", errors.New("use either --file or --payload, not both")
	case payload != "":
		return payload, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read transaction file: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if _, err := ledger.DecodePayload(text); err == nil {
			return text, nil
		}
		return ledger.EncodePayload(data), nil
	default:
		return "", errors.New("a transaction is required (--file or --payload)")
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Start a queue run now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !wait {
				return ctx.withClient(func(client *apiclient.Client) error {
					resp, err := client.ProcessQueue(cmd.Context())
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					return nil
				})
			}
			return ctx.withClientTimeout(apiclient.NoTimeout, func(client *apiclient.Client) error {
				resp, err := client.RunQueue(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				if resp.Run != nil && resp.Run.Error != "" {
					return errors.New("queue run aborted")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Run the queue synchronously and print the run summary")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or change the deployed program variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				state, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (deploying: %s)\n", titleLabel(state.State), yesNo(state.IsDeploying))
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:       "set <inert|active>",
		Short:     "Deploy the given program variant",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(program.Inert), string(program.Active)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := program.ParseVariant(args[0]); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClientTimeout(changeStateTimeout(cfg), func(client *apiclient.Client) error {
				resp, err := client.ChangeState(cmd.Context(), args[0])
				if err != nil {
					if apiclient.StatusCode(err) == 409 {
						return errors.New("a deployment is already in progress; try again shortly")
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
	stateCmd.AddCommand(setCmd)
	return stateCmd
}
