package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvanomaly/internal/application"
	"github.com/JonMunkholm/csvanomaly/internal/config"
	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/logging"
)

// cli carries the shared state of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	compact   bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "anomalyctl",
		Short:         "Detect anomalous rows in CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "Log format: text or json")
	root.PersistentFlags().BoolVar(&c.compact, "compact", false, "Print JSON on a single line")

	root.AddCommand(c.detectCmd(), c.limitsCmd())
	return root
}

func (c *cli) detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection on a CSV file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "numeric FILE",
		Short: "Score rows by their numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), args[0], func(ctx context.Context, p *core.Pipeline, up core.RawUpload) (any, error) {
				return p.DetectNumeric(ctx, up)
			})
		},
	})

	var percentile float64
	categorical := &cobra.Command{
		Use:   "categorical FILE",
		Short: "Score rows by how rare their text values are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), args[0], func(ctx context.Context, p *core.Pipeline, up core.RawUpload) (any, error) {
				return p.DetectCategorical(ctx, up, percentile)
			})
		},
	}
	categorical.Flags().Float64VarP(&percentile, "percentile", "p", 0, "Loss percentile above which a row is anomalous (default from DETECT_PERCENTILE)")
	cmd.AddCommand(categorical)

	return cmd
}

func (c *cli) limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print the sanitization limits in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return c.print(cfg.Limits.CoreLimits())
		},
	}
}

type detectFunc func(ctx context.Context, p *core.Pipeline, up core.RawUpload) (any, error)

// run loads configuration, opens path and prints the detection result.
func (c *cli) run(ctx context.Context, path string, detect detectFunc) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(logging.New(c.stderr, c.logLevel, c.logFormat))

	pipeline, err := application.NewPipeline(cfg, nil)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	resp, err := detect(ctx, pipeline, core.RawUpload{
		Filename: filepath.Base(path),
		Body:     f,
		Size:     info.Size(),
	})
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	if !c.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
