// Package main is the entry point for the scalp command.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/scalp/pkg/api"
	grpcapi "github.com/lemonberrylabs/scalp/pkg/api/grpc"
	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
	"github.com/lemonberrylabs/scalp/pkg/suite"
	"github.com/lemonberrylabs/scalp/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errChecksFailed makes check exit non-zero without printing a usage message.
var errChecksFailed = fmt.Errorf("some cases failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scalp",
		Short:         "Parse, evaluate, and integrate single-variable expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("scalp version {{.Version}}\n")

	root.AddCommand(newParseCmd(), newEvalCmd(), newIntegrateCmd(), newCheckCmd(), newServeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err != errChecksFailed {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse EXPRESSION",
		Short: "Parse an expression and print its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			showTree, _ := cmd.Flags().GetBool("tree")

			calc, err := runtime.NewEngine(nil).Parse(args[0], runtime.Options{Raw: raw})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Input interpreted as: %s\n", calc.Normalized)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Result: %s\n", calc.Result)
			if showTree {
				fmt.Fprint(out, calc.Dump)
			}
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Parse the input without normalization")
	cmd.Flags().Bool("tree", false, "Print the expression tree")
	return cmd
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "eval EXPRESSION",
		Aliases: []string{"evaluate"},
		Short:   "Evaluate a variable-free expression",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			calc, err := runtime.NewEngine(nil).Evaluate(args[0], runtime.Options{Raw: raw})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), calc.Result)
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Evaluate the input without normalization")
	return cmd
}

func newIntegrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrate EXPRESSION",
		Short: "Print an antiderivative of an expression with respect to x",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			server, _ := cmd.Flags().GetString("server")
			if server != "" {
				return integrateRemote(cmd.Context(), cmd.OutOrStdout(), server, args[0], raw)
			}

			calc, err := runtime.NewEngine(nil).Integrate(args[0], runtime.Options{Raw: raw})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), calc.Result)
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Integrate the input without normalization")
	cmd.Flags().String("server", "", "Integrate on a running scalp gRPC server at this address")
	return cmd
}

func integrateRemote(ctx context.Context, out io.Writer, addr, input string, raw bool) error {
	client, err := grpcapi.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := client.Integrate(ctx, input, raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp.GetFields()["result"].GetStringValue())
	return nil
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [FILE...]",
		Short: "Run YAML case suites and report failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			builtin, _ := cmd.Flags().GetBool("builtin")
			verbose, _ := cmd.Flags().GetBool("verbose")

			var suites []*suite.Suite
			if builtin || len(args) == 0 {
				b, err := suite.Builtin()
				if err != nil {
					return err
				}
				suites = append(suites, b...)
			}
			for _, f := range args {
				s, err := suite.Load(f)
				if err != nil {
					return err
				}
				suites = append(suites, s)
			}

			engine := runtime.NewEngine(nil)
			failed := 0
			for _, s := range suites {
				report := suite.Run(engine, s)
				printReport(cmd.OutOrStdout(), report, verbose)
				failed += report.Failed()
			}
			if failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d case(s) failed\n", failed)
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool("builtin", false, "Also run the built-in suites (default when no files are given)")
	cmd.Flags().BoolP("verbose", "v", false, "Print passing cases too")
	return cmd
}

func printReport(out io.Writer, report *suite.Report, verbose bool) {
	fmt.Fprintf(out, "== %s: %d/%d passed\n", report.Suite, len(report.Results)-report.Failed(), len(report.Results))
	for _, res := range report.Results {
		if res.Passed && !verbose {
			continue
		}
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(out, "  %s %-8s %q -> %s", mark, res.Case.Operation(), res.Case.Input, res.Got)
		if res.Reason != "" {
			fmt.Fprintf(out, " (%s)", res.Reason)
		}
		fmt.Fprintln(out)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST, gRPC, and web UI servers",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().Bool("quiet", false, "Disable the HTTP request log")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	engine := runtime.NewEngine(store.New())
	var apiOpts []api.Option
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		apiOpts = append(apiOpts, api.WithRequestLog(os.Stderr))
	}
	server := api.New(engine, apiOpts...)
	web.New(engine).Register(server.App())

	// Start gRPC server
	grpcServer := grpcapi.New(engine)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("SCALP listening on %s (web UI at /ui)", addr)
	return server.Listen(addr)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
