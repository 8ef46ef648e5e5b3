package ctl

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sentineld/internal/control"
	"sentineld/pkg/types"
)

const monitorInterval = 2 * time.Second

// fnMonitor redraws the arbitration state until interrupted.
func fnMonitor(socketPath string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	draw := func() {
		status, err := queryStatus(socketPath)
		clearScreen()
		fmt.Print(renderMonitor(status, err == nil, time.Now()))
	}

	draw()
	for {
		select {
		case <-stop:
			clearScreen()
			fmt.Println("Monitor stopped.")
			return nil
		case <-ticker.C:
			draw()
		}
	}
}

func queryStatus(socketPath string) (types.StatusResponse, error) {
	var status types.StatusResponse
	err := control.Send(socketPath, types.ControlRequest{Cmd: "status"}, &status)
	return status, err
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}

// renderMonitor builds the full monitor frame. Split out from the draw loop
// so the layout is testable without a terminal.
func renderMonitor(status types.StatusResponse, reachable bool, now time.Time) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd700"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s   [%s]\n\n", titleStyle.Render("=== Sentinel Monitor ==="), now.Format("Mon 15:04:05"))

	if !reachable {
		fmt.Fprintf(&b, "%s\n", errStyle.Render("✗ daemon not running"))
		return b.String()
	}

	dot := errStyle.Render("●")
	running := "stopped"
	if status.InferenceRunning {
		dot = okStyle.Render("●")
		running = "running"
	}
	fmt.Fprintf(&b, "Inference:  %s (%s %s)\n", status.InferenceService, dot, running)

	stateStyle := warnStyle
	if status.State == "idle" {
		stateStyle = okStyle
	}
	fmt.Fprintf(&b, "State:      %s\n", stateStyle.Render(status.State))
	if status.State != "idle" && status.LockHolder != "" {
		if status.LockSince != "" {
			fmt.Fprintf(&b, "Lock:       %s (since %s)\n", status.LockHolder, status.LockSince)
		} else {
			fmt.Fprintf(&b, "Lock:       %s\n", status.LockHolder)
		}
	}

	b.WriteString("\nSSH Sessions:\n")
	b.WriteString(strings.Repeat("─", 44) + "\n")
	if len(status.Sessions) == 0 {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("(none)"))
	}
	for _, s := range status.Sessions {
		marker := errStyle.Render("[guest, inference paused]")
		userStyle := errStyle
		if s.User == status.OwnerUser {
			marker = okStyle.Render("(owner)")
			userStyle = okStyle
		}
		fmt.Fprintf(&b, "  %s %-8s %-18s %s\n", userStyle.Render(fmt.Sprintf("%-12s", s.User)), s.TTY, s.From, marker)
	}

	fmt.Fprintf(&b, "\n%s\n", dimStyle.Render("Ctrl+C to exit"))
	return b.String()
}
