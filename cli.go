package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CrestNiraj12/terminalnotes/app"
	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
	"github.com/CrestNiraj12/terminalnotes/infra/config"
	"github.com/CrestNiraj12/terminalnotes/infra/editor"
	"github.com/CrestNiraj12/terminalnotes/infra/logging"
	"github.com/CrestNiraj12/terminalnotes/infra/metrics"
	"github.com/CrestNiraj12/terminalnotes/infra/notesapi"
	"github.com/CrestNiraj12/terminalnotes/tui"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// runtime is the wired application shared by every command.
type runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	closer    io.Closer
	registry  *prometheus.Registry
	tokens    *auth.FileTokenStore
	refresher *auth.Refresher
	hooks     *hooks.Hooks
	output    string
	editor    *editor.EnvEditor
	composer  app.Composer
}

// wire builds the stack from configuration. Interactive runs log to the
// configured file only; subcommands fall back to stderr.
func (rt *runtime) wire(cmd *cobra.Command, interactive bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	rt.cfg = cfg

	var fallback io.Writer
	if !interactive {
		fallback = cmd.ErrOrStderr()
	}
	rt.logger, rt.closer, err = logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Fallback: fallback})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	rt.registry = prometheus.NewRegistry()
	m := metrics.New(rt.registry)

	rt.tokens = auth.NewFileTokenStore(cfg.TokenPath())
	authSvc := notesapi.NewAuthService(notesapi.NewClient(cfg.APIURL, rt.tokens, notesapi.WithLogger(rt.logger)))
	rt.refresher = auth.NewRefresher(rt.tokens, authSvc.Refresh,
		auth.WithRefreshLogger(rt.logger),
		auth.WithRefreshMetrics(m),
	)
	client := notesapi.NewClient(cfg.APIURL, rt.tokens,
		notesapi.WithRefresher(rt.refresher),
		notesapi.WithLogger(rt.logger),
	)

	store := cache.NewStore(
		cache.WithStaleTime(cfg.StaleTime),
		cache.WithRegistry(hooks.NewRegistry()),
		cache.WithLogger(rt.logger),
		cache.WithMetrics(m),
	)
	rt.hooks = hooks.New(store, hooks.Services{
		Auth:         authSvc,
		Notes:        notesapi.NewNoteService(client),
		Profiles:     notesapi.NewProfileService(client),
		Follows:      notesapi.NewFollowService(client),
		Interactions: notesapi.NewInteractionService(client),
		Tokens:       rt.tokens,
	}, hooks.WithLogger(rt.logger), hooks.WithViewDedupe())
	rt.refresher.SetExpiredHandler(rt.hooks.Session.Expired)
	rt.editor = editor.NewEnvEditor()
	if rt.composer == nil {
		rt.composer = rt.editor
	}
	return nil
}

// tuiDeps hands the interactive UI the same stack the subcommands use.
func (rt *runtime) tuiDeps() tui.Deps {
	return tui.Deps{
		Hooks:       rt.hooks,
		Editor:      rt.editor,
		UIStatePath: rt.cfg.UIStatePath(),
		Logger:      rt.logger,
	}
}

func (rt *runtime) close() {
	if rt.closer != nil {
		rt.closer.Close()
	}
}

// serveMetrics exposes the registry until ctx ends.
func (rt *runtime) serveMetrics(ctx context.Context) {
	if rt.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(rt.registry))
	srv := &http.Server{Addr: rt.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server stopped", "addr", rt.cfg.MetricsAddr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	rt.logger.Info("serving metrics", "addr", rt.cfg.MetricsAddr)
}

// print writes v in the selected output format. text renders the default
// human format.
func (rt *runtime) print(w io.Writer, v any, text func(io.Writer)) error {
	switch rt.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "", "text":
		text(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", rt.output)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&runtime{})
}

func newRootCmdWith(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "terminalnotes",
		Short:         "Notes, likes and comments from the terminal",
		Long:          "TerminalNotes is a terminal client for a notes service. Run without arguments for the interactive UI.",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "version", "help":
				return nil
			}
			return rt.wire(cmd, !cmd.HasParent())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), rt)
		},
	}
	root.SetVersionTemplate("{{.Version}}")
	root.PersistentFlags().StringVarP(&rt.output, "output", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newNotesCmd(rt),
		newLikeCmd(rt),
		newCommentCmd(rt),
		newFollowCmd(rt),
		newProfileCmd(rt),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	}
}

func runTUI(ctx context.Context, rt *runtime) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rt.serveMetrics(ctx)

	root := tui.NewApp(rt.tuiDeps())
	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	rt.refresher.SetExpiredHandler(func() {
		rt.hooks.Session.Expired()
		p.Send(common.ExpiredMsg{})
	})
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
