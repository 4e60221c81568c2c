package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// TerminalChannel prints notifications to the terminal with a colored
// header per notification type. It is the default channel for
// interactive sessions; color is stripped automatically when the
// writer is not a TTY.
type TerminalChannel struct {
	out     io.Writer
	enabled bool
	bell    bool
	mu      sync.Mutex
}

// NewTerminalChannel creates a terminal channel writing to stdout.
func NewTerminalChannel(bell bool) *TerminalChannel {
	return &TerminalChannel{
		out:     os.Stdout,
		enabled: true,
		bell:    bell,
	}
}

// SetOutput redirects the channel's output.
func (t *TerminalChannel) SetOutput(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out = w
}

// SetEnabled enables or disables the channel.
func (t *TerminalChannel) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Name returns the name of the notifier.
func (t *TerminalChannel) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TerminalChannel) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Send prints the notification.
func (t *TerminalChannel) Send(ctx context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return nil
	}

	header := headerColor(n.Type)
	if _, err := header.Fprintf(t.out, "\n%s\n", n.Title); err != nil {
		return fmt.Errorf("writing notification header: %w", err)
	}
	if _, err := fmt.Fprintf(t.out, "%s\n", n.Message); err != nil {
		return fmt.Errorf("writing notification body: %w", err)
	}
	if !n.Timestamp.IsZero() {
		fmt.Fprintf(t.out, "%s\n", n.Timestamp.Format("15:04:05"))
	}

	// Bell only for events worth looking up for.
	if t.bell && (n.Type == NotificationTrade || n.Type == NotificationError) {
		fmt.Fprint(t.out, "\a")
	}

	return nil
}

func headerColor(nt NotificationType) *color.Color {
	switch nt {
	case NotificationTrade:
		return color.New(color.FgGreen, color.Bold)
	case NotificationError:
		return color.New(color.FgRed, color.Bold)
	case NotificationSummary:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}
