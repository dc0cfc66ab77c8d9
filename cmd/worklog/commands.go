package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/adapters/server"
	"github.com/hylla/worklog/internal/adapters/server/common"
	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/config"
	"github.com/hylla/worklog/internal/domain"
	"github.com/hylla/worklog/internal/textview"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// renderWidth is the wrap width for rendered summaries.
const renderWidth = 100

func runCmd(opts *rootOptions) *cobra.Command {
	var (
		serve bool
		bind  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor the focused window until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runMonitor(cmd.Context(), rt, serve || rt.cfg.Server.Enabled, bind)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the HTTP API, MCP tools, and metrics")
	cmd.Flags().StringVar(&bind, "bind", "", "server bind address (defaults to server.bind)")
	return cmd
}

// runMonitor arms the pipeline and blocks until ctx ends or the server fails.
func runMonitor(ctx context.Context, rt *worklogRuntime, serve bool, bind string) error {
	logger := rt.logger
	for _, warning := range rt.cfg.Lint() {
		logger.Warn("config warning", "detail", warning)
	}
	if path := logger.LogPath(); path != "" {
		logger.Debug("writing log file", "path", path)
	}

	if rt.cfg.Retention.CleanupOnStart {
		if _, err := rt.pipeline.Cleanup(ctx, rt.cfg.Retention.Days); err != nil {
			logger.Warn("retention cleanup on start failed", "err", err)
		}
	}

	if err := rt.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("start monitoring: %w", err)
	}
	defer func() {
		rt.pipeline.Stop()
		rt.pipeline.Wait()
		logger.Info("monitoring stopped")
	}()

	serveErr := make(chan error, 1)
	if serve {
		if strings.TrimSpace(bind) == "" {
			bind = rt.cfg.Server.Bind
		}
		logger.Info("serving api", "bind", bind)
		go func() {
			serveErr <- server.Run(ctx, server.Config{
				HTTPBind:      bind,
				ServerVersion: version,
			}, server.Dependencies{
				Service: rt.service,
				Metrics: promhttp.Handler(),
			})
		}()
	}

	select {
	case <-ctx.Done():
		if serve {
			if err := <-serveErr; err != nil {
				return fmt.Errorf("serve: %w", err)
			}
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func summarizeCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the recent lookback window now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.cfg.ValidateForSummary(); err != nil {
				return err
			}

			result, err := rt.service.GenerateSummary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}
			if !result.Generated {
				_, _ = fmt.Fprintln(out, "Nothing to summarize.")
				return nil
			}
			renderer := textview.NewMarkdownRenderer(markdownStyle)
			_, _ = fmt.Fprintln(out, renderer.RenderSummary(*result.Summary, rt.pipeline.Location(), renderWidth))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func activitiesCmd(opts *rootOptions) *cobra.Command {
	var (
		req    common.ListActivitiesRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List recorded activities for a day or date span",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			activities, err := rt.service.ListActivities(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), common.ActivityList{Activities: activities})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), textview.ActivitiesTable(activities, rt.pipeline.Location()))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Date, "date", "", "calendar date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&req.From, "from", "", "first date YYYY-MM-DD of a span")
	cmd.Flags().StringVar(&req.To, "to", "", "last date YYYY-MM-DD of a span")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print activities as JSON")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsMutuallyExclusive("date", "to")
	cmd.MarkFlagsRequiredTogether("from", "to")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one activity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.openRuntime(true)
				if err != nil {
					return err
				}
				defer rt.Close()
				if err := rt.service.DeleteActivity(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted activity %s\n", args[0])
				return nil
			},
		},
		clearActivitiesCmd(opts),
	)
	return cmd
}

func clearActivitiesCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear activities without --yes")
			}
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.pipeline.ClearActivities(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "cleared all activities")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every activity")
	return cmd
}

func summariesCmd(opts *rootOptions) *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List generated summaries for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			summaries, err := rt.service.ListSummaries(cmd.Context(), common.ListSummariesRequest{Date: date})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), common.SummaryList{Summaries: summaries})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), textview.SummariesTable(summaries, rt.pipeline.Location()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "calendar date YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")

	cmd.AddCommand(
		showSummaryCmd(opts),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one summary record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := opts.openRuntime(true)
				if err != nil {
					return err
				}
				defer rt.Close()
				if err := rt.service.DeleteSummary(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted summary %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func showSummaryCmd(opts *rootOptions) *cobra.Command {
	var copyText bool
	cmd := &cobra.Command{
		Use:   "show [id|latest]",
		Short: "Render one summary (defaults to the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ref := "latest"
			if len(args) == 1 {
				ref = args[0]
			}
			summary, err := findSummary(cmd.Context(), rt.pipeline, ref)
			if err != nil {
				return err
			}
			renderer := textview.NewMarkdownRenderer(markdownStyle)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderer.RenderSummary(summary, rt.pipeline.Location(), renderWidth))
			if summary.DocumentPath != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\ndocument: %s\n", summary.DocumentPath)
			}
			if copyText {
				if err := copyToClipboard(summary.SummaryText); err != nil {
					return fmt.Errorf("copy summary to clipboard: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "copied summary text to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the summary text to the clipboard")
	return cmd
}

// findSummary resolves one summary by id, or the newest one for "latest".
func findSummary(ctx context.Context, pipeline *app.Pipeline, ref string) (domain.Summary, error) {
	summaries, err := pipeline.QuerySummaries(ctx, domain.AllTime())
	if err != nil {
		return domain.Summary{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "latest" {
		if len(summaries) == 0 {
			return domain.Summary{}, fmt.Errorf("no summaries generated yet: %w", app.ErrNotFound)
		}
		return summaries[len(summaries)-1], nil
	}
	for _, summary := range summaries {
		if summary.ID == ref {
			return summary, nil
		}
	}
	return domain.Summary{}, fmt.Errorf("summary %q: %w", ref, app.ErrNotFound)
}

func statsCmd(opts *rootOptions) *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show activity statistics for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.service.Statistics(cmd.Context(), common.StatisticsRequest{Date: date})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), textview.StatisticsView(stats))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "calendar date YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func cleanupCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := common.CleanupRequest{}
			if cmd.Flags().Changed("days") {
				req.RetentionDays = &days
			}
			result, err := rt.service.Cleanup(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"removed %d activities, %d summaries, %d recognition results older than %s\n",
				result.ActivitiesRemoved,
				result.SummariesRemoved,
				result.RecognitionsRemoved,
				result.Cutoff.In(rt.pipeline.Location()).Format(time.DateTime),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to retention.days)")
	return cmd
}

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration with secrets redacted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				paths, cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				content, err := config.Encode(cfg.Redacted())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "# %s\n", paths.ConfigPath)
				_, _ = out.Write(content)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a starter configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				paths, err := opts.resolvePaths()
				if err != nil {
					return err
				}
				cfg := config.Default(paths.DataDir)
				cfg.API.APIKey = strings.TrimSpace(os.Getenv(config.EnvAPIKey))
				if err := config.WriteDefault(paths.ConfigPath, cfg); err != nil {
					if errors.Is(err, os.ErrExist) {
						return fmt.Errorf("config already exists at %s", paths.ConfigPath)
					}
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", paths.ConfigPath)
				return nil
			},
		},
	)
	return cmd
}

func pathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "local_config: %s\n", paths.LocalConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			return nil
		},
	}
}

// writeJSON prints one indented JSON document.
func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
