package progressui

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Bar is a plain (non-TUI) ProgressObserver built on schollz/progressbar/v3,
// used when stdout is not a TTY — piped output, CI logs.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar constructs a Bar observer.
func NewBar() *Bar {
	return &Bar{}
}

func (b *Bar) Start(total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("downloading segments"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *Bar) Advance(completed, total int, label string) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(fmt.Sprintf("segment %s (%s/%s)", label, humanize.Comma(int64(completed)), humanize.Comma(int64(total))))
	_ = b.bar.Set(completed)
}

func (b *Bar) Done(err error) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

// IsTTY reports whether stdout is an interactive terminal, used by the CLI
// to choose between the bubbletea TUI and the plain Bar fallback.
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
