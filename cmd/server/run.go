package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/isdmx/execbox/execution"
)

var (
	runLanguage string
	runInput    string
	runTimeout  float64
)

// pollInterval is how often the run command checks for completion
const pollInterval = 100 * time.Millisecond

func init() {
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "language of the source file (required)")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "stdin for the program, or @file")
	runCmd.Flags().Float64VarP(&runTimeout, "timeout", "t", 0, "deadline in seconds (milliseconds above 1000)")
	_ = runCmd.MarkFlagRequired("language")
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Execute one source file and print its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read source file: %w", err)
		}

		req := execution.Request{Language: runLanguage, Code: string(code)}
		if cmd.Flags().Changed("input") {
			input, err := readArg(runInput)
			if err != nil {
				return err
			}
			req.Input = &input
		}
		if cmd.Flags().Changed("timeout") {
			req.Timeout = &runTimeout
		}

		var svc *execution.Service
		app := fx.New(coreModule, fx.Populate(&svc))

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := app.Start(ctx); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			_ = app.Stop(stopCtx)
		}()

		rec, err := execute(ctx, svc, req)
		if err != nil {
			return err
		}
		return printRecord(cmd, rec)
	},
}

func execute(ctx context.Context, svc *execution.Service, req execution.Request) (*execution.Record, error) {
	result, err := svc.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return svc.Await(ctx, result.ExecutionID, pollInterval)
}

func printRecord(cmd *cobra.Command, rec *execution.Record) error {
	if rec.Output != nil && *rec.Output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), *rec.Output)
	}
	if rec.Error != nil && *rec.Error != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), *rec.Error)
	}
	if rec.Status != execution.StatusCompleted {
		return errors.New("execution " + string(rec.Status))
	}
	return nil
}

// readArg returns value, or the contents of the named file for @file.
func readArg(value string) (string, error) {
	if len(value) == 0 || value[0] != '@' {
		return value, nil
	}
	data, err := os.ReadFile(value[1:])
	if err != nil {
		return "", fmt.Errorf("read input file: %w", err)
	}
	return string(data), nil
}
