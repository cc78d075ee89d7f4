package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/citeq/citeq/internal/citation"
	"github.com/citeq/citeq/internal/control"
	"github.com/citeq/citeq/internal/metrics"
	"github.com/citeq/citeq/internal/trace"
)

type agentAskOptions struct {
	outDir     string
	noTrace    bool
	json       bool
	metricsOut string
}

func newAgentAskCmd() *cobra.Command {
	var opts agentAskOptions

	cmd := &cobra.Command{
		Use:   "agent-ask <question>",
		Short: "Run the bounded control loop (C8) and write a trace file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory to write the trace file into")
	cmd.Flags().BoolVar(&opts.noTrace, "no-trace", false, "skip writing the trace file")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the final answer as JSON")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "write citeq_* Prometheus metrics (text exposition format) to this path")

	return cmd
}

func runAgentAsk(cmd *cobra.Command, question string, opts agentAskOptions) error {
	ctx := cmd.Context()
	cfg := appConfig
	start := time.Now()

	store, err := loadStore()
	if err != nil {
		return err
	}

	pipeline, closeDense, err := buildRetriever(ctx, cfg, store, "faiss")
	if err != nil {
		return err
	}
	defer closeDense()

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	reg := metrics.New()
	state := control.Run(ctx, question, pipeline, store, gen, control.FromAppConfig(cfg), reg)

	if opts.metricsOut != "" {
		if err := reg.WriteTextFile(opts.metricsOut); err != nil {
			return err
		}
	}

	if !opts.noTrace {
		f := trace.FromState(state)
		path := filepath.Join(opts.outDir, trace.Filename(start, question))
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		werr := trace.Write(out, f)
		cerr := out.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "trace written to %s\n", path)
	}

	answer := state.DraftAnswer
	if state.RefusalReason != "" {
		answer = citation.RefusalSentinel
	}

	if opts.json {
		payload, err := json.MarshalIndent(struct {
			Answer    interface{} `json:"answer"`
			Citations interface{} `json:"citations"`
		}{Answer: answer, Citations: state.Citations}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	for _, c := range state.Citations {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s p%d-p%d (%s)\n", c.Key, c.DocID, c.StartPage, c.EndPage, c.ChunkID)
	}
	return nil
}
