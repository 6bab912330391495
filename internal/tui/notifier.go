package tui

import (
	"io"
	"log"

	"github.com/sadopc/pomo/internal/engine"
)

// Notifier plays cues and raises notifications for timer events.
type Notifier interface {
	Play(engine.Sound)
	Notify(title, body string)
}

// TerminalNotifier rings the terminal bell and logs notifications.
type TerminalNotifier struct {
	out    io.Writer
	logger *log.Logger
}

// NewTerminalNotifier writes bells to out. A nil logger discards
// notifications.
func NewTerminalNotifier(out io.Writer, logger *log.Logger) *TerminalNotifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TerminalNotifier{out: out, logger: logger}
}

func (n *TerminalNotifier) Play(s engine.Sound) {
	if n.out == nil {
		return
	}
	bells := "\a"
	if s == engine.SoundComplete {
		bells = "\a\a"
	}
	io.WriteString(n.out, bells)
}

func (n *TerminalNotifier) Notify(title, body string) {
	n.logger.Printf("%s %s", title, body)
}
