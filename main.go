package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"colloquy/audio"
	"colloquy/engine"
	"colloquy/guardrails"
	"colloquy/log"
	"colloquy/router"
	"colloquy/store"
	"colloquy/transcriber"
	"colloquy/transcript"
	"colloquy/tts"
	"colloquy/vad"
)

var version = "dev"

func main() {
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logDir := flag.String("log-dir", "", "write logs to a file in this directory instead of stderr")
	noTUI := flag.Bool("no-tui", false, "run headless, end the chat on SIGINT")
	listDevices := flag.Bool("list-devices", false, "list capture devices and exit")
	listSessions := flag.Bool("sessions", false, "list saved sessions and exit (requires DATABASE_URL)")
	replay := flag.String("replay", "", "print a saved session transcript and exit (requires DATABASE_URL)")
	owner := flag.String("owner", "local", "session owner id")
	voice := flag.String("voice", "", "TTS voice id (default: provider voice)")
	speed := flag.Float64("speed", 1.0, "TTS speech speed")
	volume := flag.Float64("volume", 0.8, "playback volume 0..1")
	threshold := flag.Float64("vad-threshold", vad.DefaultThreshold, "VAD energy threshold 0..1")
	hangoverMs := flag.Int("vad-hangover-ms", int(vad.DefaultHangover/time.Millisecond), "silence before a turn ends")
	noGuardrails := flag.Bool("no-guardrails", false, "disable the content safety gate")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("colloquy", version)
		return
	}

	// .env is optional; real env always wins.
	_ = godotenv.Load()

	if err := log.Init(*logLevel, *logDir); err != nil {
		fmt.Fprintf(os.Stderr, "log init: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(runOptions{
		noTUI:        *noTUI,
		listDevices:  *listDevices,
		listSessions: *listSessions,
		replay:       *replay,
		owner:        *owner,
		settings: engine.VoiceSettings{
			VoiceID:           *voice,
			Speed:             *speed,
			Volume:            *volume,
			VADThreshold:      *threshold,
			VADHangoverMs:     *hangoverMs,
			GuardrailsEnabled: !*noGuardrails,
		},
	}); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "colloquy: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	noTUI        bool
	listDevices  bool
	listSessions bool
	replay       string
	owner        string
	settings     engine.VoiceSettings
}

func run(opts runOptions) error {
	if opts.listSessions {
		return printSessions(opts.owner)
	}
	if opts.replay != "" {
		return printTranscript(opts.replay)
	}

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	if opts.listDevices {
		devices, err := actx.Devices()
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		for _, d := range devices {
			suffix := ""
			if audio.IsBluetooth(d.Name) {
				suffix = " (BT)"
			}
			fmt.Printf("%s%s\n", d.Name, suffix)
		}
		return nil
	}

	stt, err := transcriber.New()
	if err != nil {
		return err
	}
	backend, err := router.NewBackend()
	if err != nil {
		return err
	}
	synth, err := tts.New()
	if err != nil {
		return err
	}
	if el, ok := synth.(*tts.ElevenLabs); ok && opts.settings.Speed > 0 && opts.settings.Speed != 1.0 {
		el.Speed = opts.settings.Speed
	}

	eng := engine.New(engine.Config{
		Audio:       actx,
		Transcriber: stt,
		Gate:        guardrails.New(guardrails.Config{}),
		Router:      router.New(backend),
		Synth:       synth,
		Store:       openStore(),
		OwnerID:     opts.owner,
		Settings:    opts.settings,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	if opts.noTUI {
		<-ctx.Done()
		summary := eng.EndChat()
		fmt.Printf("session %s ended: %d turns, %s\n",
			summary.SessionID, len(summary.Turns), summary.Duration.Round(time.Second))
		return nil
	}

	program := tea.NewProgram(newDashboard(eng), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		eng.Stop()
		return fmt.Errorf("tui: %w", err)
	}
	summary := eng.EndChat()
	fmt.Printf("session %s ended: %d turns, %s\n",
		summary.SessionID, len(summary.Turns), summary.Duration.Round(time.Second))
	return nil
}

// openStore wires durable persistence when DATABASE_URL is set. Failures
// degrade to in-memory: the conversation must never depend on archival.
func openStore() *store.BestEffort {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return store.NewBestEffort(store.NewMemory())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, url)
	if err != nil {
		log.Warnf("postgres unavailable, running in-memory: %v", err)
		return store.NewBestEffort(nil)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Warnf("postgres schema setup failed, running in-memory: %v", err)
		return store.NewBestEffort(nil)
	}
	return store.NewBestEffort(pg)
}

func printSessions(owner string) error {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return fmt.Errorf("-sessions requires DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, url)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	sessions, err := pg.ListSessions(ctx, owner, 20)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}

// printTranscript dumps a stored session after reconciling duplicates that
// reached the archive before the engine caught them.
func printTranscript(sessionID string) error {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return fmt.Errorf("-replay requires DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, url)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	turns, err := pg.RecentTurns(ctx, sessionID, 500)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	for _, turn := range transcript.Reconcile(turns) {
		fmt.Printf("[%s] %s: %s\n",
			turn.CreatedAt.Format("15:04:05"), turn.Role, turn.Content)
	}
	return nil
}
