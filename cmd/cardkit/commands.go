package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardkit/internal/cardfmt"
	"github.com/alovak/cardkit/internal/cardgen"
	"github.com/alovak/cardkit/toolkit"
	"github.com/alovak/cardkit/toolkit/models"
)

type rootOptions struct {
	input   string
	asJSON  bool
	workers int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cardkit",
		Short:         "Generate, validate and reformat test payment cards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.input, "input", "i", "", "read cards from this file instead of stdin")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print the full JSON response")
	root.PersistentFlags().IntVar(&opts.workers, "workers", 0, "parse workers (0 uses MAX_WORKERS)")

	root.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newFormatCmd(opts),
		newISO8583Cmd(opts),
		newServeCmd(),
	)
	return root
}

// service builds a quiet service; the CLI reports through stdout, not logs.
func (o *rootOptions) service(cmd *cobra.Command) *toolkit.Service {
	cfg := toolkit.LoadConfig()
	if o.workers > 0 {
		cfg.MaxWorkers = o.workers
	}
	logger := toolkit.NewLogger(cmd.ErrOrStderr(), slog.LevelError)
	return toolkit.NewService(cfg, cardgen.New(), logger, nil)
}

var errInputConflict = errors.New("card arguments and --input are mutually exclusive")

// readInput treats positional args as a single card line, so an unquoted
// "4111 1111 1111 1111" still reads as one number. Multi-line input comes
// from --input or stdin.
func (o *rootOptions) readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		if o.input != "" {
			return "", errInputConflict
		}
		return strings.Join(args, " "), nil
	}
	if o.input != "" {
		b, err := os.ReadFile(o.input)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}

func (o *rootOptions) print(cmd *cobra.Command, resp any, lines []string) error {
	out := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	req := models.GenerateRequest{}

	cmd := &cobra.Command{
		Use:   "generate BIN",
		Short: "Generate Luhn-valid card numbers under a BIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.BIN = args[0]
			req.Quantity = cardgen.ClampQuantity(req.Quantity)

			resp, err := opts.service(cmd).Generate(req)
			if err != nil {
				return err
			}
			lines := make([]string, len(resp.Cards))
			for i, c := range resp.Cards {
				lines[i] = c.Formatted
			}
			return opts.print(cmd, resp, lines)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&req.Quantity, "quantity", "n", 10, "number of cards (clamped to 1..100)")
	f.IntVarP(&req.Length, "length", "l", 0, "card number length, 13..19 (0 uses DEFAULT_LENGTH)")
	f.BoolVarP(&req.IncludeExpiry, "expiry", "e", false, "include an expiry date")
	f.BoolVarP(&req.IncludeCVV, "cvv", "c", false, "include a CVV")
	f.BoolVarP(&req.Unique, "unique", "u", false, "never repeat a number within the batch")
	f.StringVarP(&req.Separator, "separator", "s", "pretty", "output separator: "+strings.Join(cardfmt.Names(), ", "))
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [card]",
		Short: "Run the Luhn check over each line of input",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := opts.readInput(cmd, args)
			if err != nil {
				return err
			}
			resp, err := opts.service(cmd).Validate(models.ValidateRequest{Input: input})
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(resp.Results)+1)
			for _, r := range resp.Results {
				verdict := "INVALID"
				if r.Valid {
					verdict = "VALID"
				}
				line := fmt.Sprintf("%-23s %-7s %s", r.Card, verdict, r.Brand)
				if r.Expired != nil && *r.Expired {
					line += " (expired)"
				}
				lines = append(lines, line)
			}
			lines = append(lines, fmt.Sprintf("%d/%d valid", resp.ValidCount, resp.Total))
			return opts.print(cmd, resp, lines)
		},
	}
}

func newFormatCmd(opts *rootOptions) *cobra.Command {
	var separator string

	cmd := &cobra.Command{
		Use:   "format [card]",
		Short: "Extract cards from free-form text and reprint them",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := opts.readInput(cmd, args)
			if err != nil {
				return err
			}
			resp, err := opts.service(cmd).Format(cmd.Context(), models.FormatRequest{Input: input, Separator: separator})
			if err != nil {
				return err
			}
			return opts.print(cmd, resp, resp.Lines)
		},
	}
	cmd.Flags().StringVarP(&separator, "separator", "s", "", "output separator: "+strings.Join(cardfmt.Names(), ", "))
	return cmd
}

func newISO8583Cmd(opts *rootOptions) *cobra.Command {
	req := models.ISO8583Request{}

	cmd := &cobra.Command{
		Use:   "iso8583 [card]",
		Short: "Pack each card into an ISO 8583 0100 authorization request",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := opts.readInput(cmd, args)
			if err != nil {
				return err
			}
			req.Input = input
			resp, err := opts.service(cmd).ISO8583(cmd.Context(), req)
			if err != nil {
				return err
			}
			lines := make([]string, len(resp.Messages))
			for i, m := range resp.Messages {
				lines[i] = fmt.Sprintf("%06d %s %s", m.STAN, m.Card, m.Hex)
			}
			return opts.print(cmd, resp, lines)
		},
	}
	cmd.Flags().Int64VarP(&req.Amount, "amount", "a", 0, "amount in minor units")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "ISO 4217 numeric currency (empty uses ISO8583_CURRENCY)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := toolkit.LoadConfig()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			logger := toolkit.NewLogger(os.Stdout, cfg.Level())

			app := toolkit.NewApp(logger, cfg)
			if err := app.Start(); err != nil {
				return fmt.Errorf("starting app: %w", err)
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c

			app.Shutdown()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
