package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/config"
	"github.com/joestump/refselect/internal/gitref"
	"github.com/joestump/refselect/internal/mcpserver"
	"github.com/joestump/refselect/internal/plugin"
	"github.com/joestump/refselect/internal/report"
	"github.com/joestump/refselect/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 8080, "HTTP port for the API")
	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	a.logger.Info("refselect starting",
		zap.String("version", config.Version),
		zap.Int("port", cfg.Port),
		zap.Strings("listers", a.registry.Names()),
	)

	srv := web.New(&a.cfg, a.db, a.processor, a.logger, web.WithFeed(a.feed))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	// Open event streams only end when the feed closes.
	a.feed.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api shutdown", zap.Error(err))
	}
	return nil
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Load())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := mcpserver.NewServer(a.processor, a.logger)
			return s.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newSelectCmd() *cobra.Command {
	var req plugin.SelectBranchesRequest
	var output string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "List a remote's refs and print a branch context per match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(report.Formats(), output) {
				return fmt.Errorf("unknown output format %q (want one of %s)", output, strings.Join(report.Formats(), ", "))
			}

			a, err := newApp(config.Load())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			contexts, err := a.processor.Select(cmd.Context(), req)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), output, contexts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.URL, "url", "", "clone URL of the repository")
	f.StringVar(&req.Pattern, "pattern", "", "regular expression searched in each full ref name")
	f.StringVar(&req.Username, "username", "", "user name for the remote")
	f.StringVar(&req.Password, "password", "", "password or token for the remote")
	f.StringVar(&req.Backend, "backend", "", "force a listing backend")
	f.StringVarP(&output, "output", "o", report.FormatJSON, "output format: "+strings.Join(report.Formats(), ", "))
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse git ls-remote output from a file or stdin into JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck
				in = f
			}

			refs, err := gitref.ParseReader(in)
			if err != nil {
				return fmt.Errorf("read advertisement: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(refs)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "refselect %s\n", config.Version)
		},
	}
}
