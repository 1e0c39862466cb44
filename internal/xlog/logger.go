// Package xlog provides the shared leveled logger used across reelforge.
package xlog

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// IsDebug gates debug-level output. Set via SetDebug before Init, or
// toggled at runtime by the --debug CLI flag.
var IsDebug bool

// Logger is the process-wide structured logger.
var Logger *log.Logger

var initOnce sync.Once

func getColoredPrefix() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#6366F1")).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
	return style.Render("reelforge")
}

// SetDebug toggles debug-level logging and caller/timestamp reporting.
func SetDebug(debug bool) {
	IsDebug = debug
	if Logger == nil {
		return
	}
	Logger.SetReportCaller(debug)
	Logger.SetReportTimestamp(debug)
	if debug {
		Logger.SetLevel(log.DebugLevel)
	} else {
		Logger.SetLevel(log.InfoLevel)
	}
}

// Init initializes the shared logger. Safe to call multiple times.
func Init() {
	initOnce.Do(func() {
		Logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    IsDebug,
			ReportTimestamp: IsDebug,
			TimeFormat:      "15:04:05",
			Prefix:          getColoredPrefix(),
		})
		Logger.SetColorProfile(termenv.TrueColor)
		if IsDebug {
			Logger.SetLevel(log.DebugLevel)
		} else {
			Logger.SetLevel(log.InfoLevel)
		}
	})
}

func ensure() {
	if Logger == nil {
		Init()
	}
}

func Debug(msg interface{}, keyvals ...interface{}) {
	ensure()
	if IsDebug {
		Logger.Debug(fmt.Sprintf("%v", msg), keyvals...)
	}
}

func Info(msg interface{}, keyvals ...interface{}) {
	ensure()
	Logger.Info(fmt.Sprintf("%v", msg), keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	ensure()
	Logger.Warn(fmt.Sprintf("%v", msg), keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	ensure()
	Logger.Error(fmt.Sprintf("%v", msg), keyvals...)
}

func Debugf(format string, args ...interface{}) {
	ensure()
	if IsDebug {
		Logger.Debug(fmt.Sprintf(format, args...))
	}
}

func Infof(format string, args ...interface{}) {
	ensure()
	Logger.Info(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	ensure()
	Logger.Warn(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	ensure()
	Logger.Error(fmt.Sprintf(format, args...))
}
