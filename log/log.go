// Package log is a thin zerolog wrapper shared by every engine component.
// The engine treats most failures as degradations rather than errors, so the
// warn level carries most of the diagnostic weight.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logMu    sync.Mutex
	root     zerolog.Logger
	logFile  *os.File
	logReady bool
)

// Init sets up console logging at the given level. If dir is non-empty the
// output goes to dir/engine_log.txt instead of stderr.
func Init(level string, dir string) error {
	logMu.Lock()
	defer logMu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	noColor := false
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		path := filepath.Join(dir, "engine_log.txt")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logFile = f
		out = f
		noColor = true
	}

	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    noColor,
	}
	root = zerolog.New(cw).Level(lvl).With().Timestamp().Int("pid", os.Getpid()).Logger()
	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logReady = false
}

// For returns a logger tagged with a component name, e.g. "engine" or "store".
// The pointer keeps event chains like For("store").Warn() addressable.
func For(component string) *zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		nop := zerolog.Nop()
		return &nop
	}
	l := root.With().Str("component", component).Logger()
	return &l
}

func Info(msg string) {
	logMu.Lock()
	defer logMu.Unlock()
	if logReady {
		root.Info().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	logMu.Lock()
	defer logMu.Unlock()
	if logReady {
		root.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Errorf(format string, args ...any) {
	logMu.Lock()
	defer logMu.Unlock()
	if logReady {
		root.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// SessionStart records the providers wired into a new conversation.
func SessionStart(stt, llm, tts string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	root.Info().
		Str("stt", stt).
		Str("llm", llm).
		Str("tts", tts).
		Msg("session start")
}

// SessionEnd records a finished conversation.
func SessionEnd(sessionID string, turns int, dur time.Duration) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	root.Info().
		Str("session_id", sessionID).
		Int("turns", turns).
		Dur("duration", dur).
		Msg("session end")
}
