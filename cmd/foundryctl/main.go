// foundryctl drives the campaign foundry backend from the terminal: it
// streams generation runs, persists artifacts, serves previews, and
// controls the voice agent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/foundrylabs/foundryctl/internal/api"
	"github.com/foundrylabs/foundryctl/internal/campaign"
	"github.com/foundrylabs/foundryctl/internal/config"
	"github.com/foundrylabs/foundryctl/internal/export"
	"github.com/foundrylabs/foundryctl/internal/preview"
	"github.com/foundrylabs/foundryctl/internal/session"
	"github.com/foundrylabs/foundryctl/internal/store"
	"github.com/foundrylabs/foundryctl/internal/transcript"
	"github.com/foundrylabs/foundryctl/internal/tui"
)

const usage = `Usage: foundryctl <command> [flags]

Commands:
  run        stream a campaign generation run headlessly
  dashboard  interactive terminal dashboard
  show       print a stored run and its artifacts
  export     export a run's artifacts as JSON or YAML
  preview    serve the generated landing page over HTTP
  brd        download the BRD document of a run
  voice      voice agent: knowledge base and outbound calls
  prompt     generate a sales-call system prompt
`

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(os.Getenv("FOUNDRY_LOG_LEVEL"), "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "run":
		err = cmdRun(ctx, cfg, args)
	case "dashboard":
		err = cmdDashboard(ctx, cfg, args)
	case "show":
		err = cmdShow(ctx, cfg, args)
	case "export":
		err = cmdExport(ctx, cfg, args)
	case "preview":
		err = cmdPreview(ctx, cfg, args)
	case "brd":
		err = cmdBRD(ctx, cfg, args)
	case "voice":
		err = cmdVoice(ctx, cfg, args)
	case "prompt":
		err = cmdPrompt(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// newSession assembles a session against the configured stream endpoint,
// with an optional transcript recorder tapping the raw frames.
func newSession(cfg *config.Config, notify func(session.Notice)) (*session.Session, *transcript.Recorder, error) {
	runID := uuid.NewString()

	var rec *transcript.Recorder
	var onFrame func(dir string, frame []byte)
	if cfg.Transcript.Enabled {
		var err error
		rec, err = transcript.New(cfg.Transcript.Dir, runID, cfg.Transcript.QueueSize)
		if err != nil {
			return nil, nil, err
		}
		onFrame = rec.Frame
	}

	sess, err := session.New(session.Options{
		Dial:           session.Dialer(cfg.StreamURL),
		RunID:          runID,
		ReconnectBase:  cfg.ReconnectBase,
		ReconnectCap:   cfg.ReconnectCap,
		MaxReconnects:  cfg.ReconnectMaxAttempts,
		SendRetryDelay: cfg.SendRetryDelay,
		Notify:         notify,
		OnFrame:        onFrame,
	})
	if err != nil {
		if rec != nil {
			rec.Close()
		}
		return nil, nil, err
	}
	return sess, rec, nil
}

// persistNotice mirrors session changes into the store so later commands
// can read the run without the stream.
func persistNotice(repo store.Repository, sess *session.Session, n session.Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch n.Kind {
	case session.NoticeStatus:
		if n.Status == session.StatusRunning {
			// A run just started; capture the prompt alongside the status.
			now := time.Now()
			err := repo.UpsertRun(ctx, &store.Run{
				ID: sess.RunID(), Prompt: sess.Prompt(), Status: string(n.Status),
				CreatedAt: now, UpdatedAt: now,
			})
			if err != nil {
				slog.Warn("failed to persist run", "error", err)
			}
			return
		}
		if err := repo.UpdateRunStatus(ctx, sess.RunID(), string(n.Status)); err != nil {
			slog.Warn("failed to persist run status", "error", err)
		}
	case session.NoticeArtifact:
		payload := sess.Artifacts().Get(n.Agent)
		if payload == nil {
			return
		}
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Warn("failed to marshal artifact", "agent", n.Agent, "error", err)
			return
		}
		if err := repo.SaveArtifact(ctx, sess.RunID(), string(n.Agent), data); err != nil {
			slog.Warn("failed to persist artifact", "agent", n.Agent, "error", err)
		}
	}
}

// runResult is how a headless run ends: a terminal status, or an alert
// (dropped send, reconnect breaker) that means no run will ever start.
type runResult struct {
	status session.Status
	alert  string
}

// headlessOutcome reports whether a notice should end a headless run.
// Alerts are fatal here: with no user to resubmit the prompt, waiting out
// the timeout after a dropped send is pointless.
func headlessOutcome(n session.Notice) (runResult, bool) {
	if n.Kind == session.NoticeAlert {
		return runResult{status: n.Status, alert: n.Entry.Text}, true
	}
	if n.Kind == session.NoticeStatus {
		switch n.Status {
		case session.StatusCompleted, session.StatusErrored:
			return runResult{status: n.Status}, true
		}
	}
	return runResult{}, false
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	prompt := fs.String("prompt", "", "campaign prompt (required)")
	timeout := fs.Duration("timeout", 30*time.Minute, "abort the run after this long")
	fs.Parse(args)

	if strings.TrimSpace(*prompt) == "" {
		return fmt.Errorf("-prompt is required")
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	done := make(chan runResult, 1)
	var sess *session.Session

	notify := func(n session.Notice) {
		persistNotice(repo, sess, n)
		if n.Kind == session.NoticeLog || n.Kind == session.NoticeAlert {
			fmt.Println(n.Entry.Text)
		}
		if res, terminal := headlessOutcome(n); terminal {
			select {
			case done <- res:
			default:
			}
		}
	}

	sess, rec, err := newSession(cfg, notify)
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
		slog.Info("recording transcript", "path", rec.Path())
	}
	defer sess.Close()

	now := time.Now()
	err = repo.UpsertRun(ctx, &store.Run{
		ID: sess.RunID(), Prompt: *prompt, Status: string(session.StatusIdle),
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	slog.Info("starting campaign run", "run_id", sess.RunID())
	if err := sess.Start(*prompt); err != nil {
		return err
	}

	select {
	case res := <-done:
		if res.alert != "" {
			repo.UpdateRunStatus(context.Background(), sess.RunID(), "aborted")
			return fmt.Errorf("run %s aborted: %s", sess.RunID(), res.alert)
		}
		if res.status == session.StatusErrored {
			return fmt.Errorf("run %s errored, see log above", sess.RunID())
		}
		fmt.Printf("Run %s completed.\n", sess.RunID())
		return nil
	case <-time.After(*timeout):
		return fmt.Errorf("run timed out after %s", *timeout)
	case <-ctx.Done():
		repo.UpdateRunStatus(context.Background(), sess.RunID(), "interrupted")
		return ctx.Err()
	}
}

func cmdDashboard(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	prompt := fs.String("prompt", "", "submit this prompt immediately")
	withPreview := fs.Bool("preview", false, "also serve the landing page preview")
	fs.Parse(args)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	notices := make(chan session.Notice, 256)
	var sess *session.Session
	notify := func(n session.Notice) {
		persistNotice(repo, sess, n)
		select {
		case notices <- n:
		default:
			// dashboard lagging; drop rather than stall the stream
		}
	}

	sess, rec, err := newSession(cfg, notify)
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
	}
	defer sess.Close()

	// Recorded up front so status updates have a row to land on; the
	// prompt column is refreshed when the user submits one.
	now := time.Now()
	repo.UpsertRun(ctx, &store.Run{
		ID: sess.RunID(), Prompt: *prompt, Status: string(session.StatusIdle),
		CreatedAt: now, UpdatedAt: now,
	})

	registry := session.NewRegistry()
	registry.Register(sess)
	defer registry.Unregister(sess)

	if *withPreview {
		srv := preview.NewServer(registry, repo, cfg.DownloadDir)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.PreviewAddr); err != nil {
				slog.Warn("preview server stopped", "error", err)
			}
		}()
	}
	sess.Connect()

	prog := tea.NewProgram(tui.New(sess, notices, *prompt), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = prog.Run()
	return err
}

func cmdShow(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	runID := fs.String("run", "", "run ID (default: latest)")
	fs.Parse(args)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	run, err := resolveRun(ctx, repo, *runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run:     %s\nPrompt:  %s\nStatus:  %s\nUpdated: %s\n\n",
		run.ID, run.Prompt, run.Status, run.UpdatedAt.Format(time.RFC3339))

	artifacts, err := repo.ListArtifacts(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Println("No artifacts recorded.")
		return nil
	}
	for _, agent := range campaign.Agents {
		payload, ok := artifacts[string(agent)]
		if !ok {
			continue
		}
		fmt.Printf("%s:\n", agent)
		var pretty map[string]any
		if err := json.Unmarshal(payload, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "  ", "  ")
			fmt.Printf("  %s\n", out)
		} else {
			fmt.Printf("  %s\n", payload)
		}
	}
	return nil
}

func cmdExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	runID := fs.String("run", "", "run ID (default: latest)")
	format := fs.String("format", "json", "output format: json or yaml")
	out := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	run, err := resolveRun(ctx, repo, *runID)
	if err != nil {
		return err
	}
	artifacts, err := repo.ListArtifacts(ctx, run.ID)
	if err != nil {
		return err
	}

	bundle := export.Build(run, artifacts)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	return bundle.Encode(w, *format)
}

func cmdPreview(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	addr := fs.String("addr", cfg.PreviewAddr, "listen address")
	fs.Parse(args)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	srv := preview.NewServer(nil, repo, cfg.DownloadDir)
	return srv.ListenAndServe(ctx, *addr)
}

func cmdBRD(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("brd", flag.ExitOnError)
	runID := fs.String("run", "", "run ID (default: latest)")
	fs.Parse(args)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	run, err := resolveRun(ctx, repo, *runID)
	if err != nil {
		return err
	}
	payload, err := repo.GetArtifact(ctx, run.ID, string(campaign.AgentBRD))
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("run %s has no BRD artifact", run.ID)
	}

	var artifact campaign.BRDArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode BRD artifact: %w", err)
	}

	client := api.NewFoundryClient(cfg.FoundryURL)
	path, err := client.DownloadBRD(ctx, artifact.URL, cfg.DownloadDir)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}

func cmdVoice(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("voice", flag.ExitOnError)
	kbURL := fs.String("kb", "", "ingest this URL into the knowledge base")
	call := fs.String("call", "", "start an outbound call to this phone number")
	fs.Parse(args)

	if (*kbURL == "") == (*call == "") {
		return fmt.Errorf("exactly one of -kb or -call is required")
	}

	client := api.NewVoiceClient(cfg.VoiceURL)
	if *kbURL != "" {
		msg, err := client.CreateKnowledgeBase(ctx, *kbURL)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}

	msg, err := client.StartCall(ctx, *call)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func cmdPrompt(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("prompt", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	url := fs.String("url", "", "product URL")
	fs.Parse(args)

	client := api.NewVoiceClient(cfg.VoiceURL)
	prompt, err := client.GeneratePrompt(ctx, *name, *url)
	if err != nil {
		return err
	}
	fmt.Println(prompt)
	return nil
}

func resolveRun(ctx context.Context, repo store.Repository, runID string) (*store.Run, error) {
	if runID != "" {
		run, err := repo.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return run, nil
	}
	run, err := repo.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no runs recorded yet")
	}
	return run, nil
}
