// Command contractd serves and runs contract field extraction.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	contracts "github.com/vivaneiona/genkit-contracts"
)

type app struct {
	cfg  *Config
	log  *slog.Logger
	docs contracts.TextExtractor
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "contractd",
		Short:         "Extract and verify contract fields with Gemini",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			a.cfg = LoadConfig()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      a.cfg.LogLevel,
				TimeFormat: time.Kitchen,
			}))
			slog.SetDefault(a.log)
			a.docs = contracts.NewAutoExtractor(a.log)
			return nil
		},
	}
	root.AddCommand(a.serveCmd(), a.extractCmd(), a.planCmd(), a.watchCmd())
	return root
}

// extractor builds an Extractor. Model access is only required when live
// is set.
func (a *app) extractor(ctx context.Context, live bool) (*contracts.Extractor, error) {
	prompts, err := a.cfg.PromptProvider()
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	if !live {
		return contracts.NewWithInvoker(nil, nil, prompts, a.log), nil
	}
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  a.cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return contracts.NewWithLogger(client, nil, prompts, a.log), nil
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			x, err := a.extractor(ctx, true)
			if err != nil {
				return err
			}
			s := &server{x: x, docs: a.docs, opts: a.cfg.Options(), maxBytes: a.cfg.MaxUploadBytes(), log: a.log}
			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      s.routes(),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server.start", "addr", srv.Addr, "model", a.cfg.LLM.Model)
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.log.Info("server.stop")
			return srv.Shutdown(shutdownCtx)
		},
	}
}

type selectionFlags struct {
	tier   string
	fields string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tier, "tier", string(contracts.TierEssential), "tier: essential, professional or enterprise")
	cmd.Flags().StringVar(&f.fields, "fields", "", "comma separated field keys (overrides --tier)")
}

func (f *selectionFlags) selection() contracts.Selection { return selectionFrom(f.tier, f.fields) }

func (a *app) extractCmd() *cobra.Command {
	var (
		sel    selectionFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Analyze one PDF or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			x, err := a.extractor(ctx, true)
			if err != nil {
				return err
			}
			analysis, err := a.analyzeFile(ctx, x, args[0], sel.selection())
			if err != nil && analysis == nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, ferr := os.Create(out)
				if ferr != nil {
					return ferr
				}
				defer f.Close()
				w = f
			}
			if werr := writeAnalysis(w, analysis, x.Taxonomy(), format); werr != nil {
				return werr
			}
			return err
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) planCmd() *cobra.Command {
	var (
		sel    selectionFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Print the segments, calls and estimated cost without calling the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			x, err := a.extractor(ctx, false)
			if err != nil {
				return err
			}
			doc, err := a.readDocument(ctx, args[0])
			if err != nil {
				return err
			}
			stats, err := x.DryRun(ctx, doc, sel.selection(), a.cfg.Options()...)
			if err != nil {
				return err
			}
			text, err := contracts.FormatPlan(contracts.BuildPlan(stats, contracts.DefaultModelPricing()), contracts.FormatType(format))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "plan format: text, json or dot")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var (
		sel      selectionFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Analyze files dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			x, err := a.extractor(ctx, true)
			if err != nil {
				return err
			}
			files, err := StartWatcher(ctx, WatchConfig{Root: args[0], InitialScan: true, Debounce: debounce}, a.log)
			if err != nil {
				return err
			}
			a.log.Info("watch.start", "root", args[0])
			for path := range files {
				if fresh(path) {
					continue
				}
				if err := a.processWatched(ctx, x, path, sel.selection()); err != nil {
					a.log.Warn("watch.failed", "path", path, "error", err)
				}
			}
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", time.Second, "wait for writes to settle")
	return cmd
}

func (a *app) processWatched(ctx context.Context, x *contracts.Extractor, path string, sel contracts.Selection) error {
	analysis, err := a.analyzeFile(ctx, x, path, sel)
	if analysis == nil {
		return err
	}
	f, ferr := os.Create(analysisPath(path))
	if ferr != nil {
		return ferr
	}
	defer f.Close()
	if werr := writeAnalysis(f, analysis, x.Taxonomy(), "json"); werr != nil {
		return werr
	}
	a.log.Info("watch.analyzed", "path", path, "found", analysis.Metadata.FieldsFound, "incomplete", analysis.Metadata.Incomplete)
	return err
}

// fresh reports whether path already has an analysis newer than itself.
func fresh(path string) bool {
	src, err := os.Stat(path)
	if err != nil {
		return true
	}
	dst, err := os.Stat(analysisPath(path))
	return err == nil && !dst.ModTime().Before(src.ModTime())
}

func (a *app) readDocument(ctx context.Context, path string) (*contracts.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > a.cfg.MaxUploadBytes() {
		return nil, fmt.Errorf("%s: %d bytes exceeds the %d MB limit", path, len(data), a.cfg.Server.MaxUploadMB)
	}
	return a.docs.Extract(ctx, data)
}

func (a *app) analyzeFile(ctx context.Context, x *contracts.Extractor, path string, sel contracts.Selection) (*contracts.ContractAnalysis, error) {
	doc, err := a.readDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return x.ExtractDocument(ctx, doc, sel, a.cfg.Options()...)
}

func writeAnalysis(w io.Writer, a *contracts.ContractAnalysis, tax *contracts.Taxonomy, format string) error {
	if format == "xlsx" {
		return contracts.WriteXLSX(w, a, tax)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
