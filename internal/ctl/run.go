package ctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"strings"
	"syscall"

	"sentineld/internal/control"
	"sentineld/pkg/types"
)

// maxHolderCmd bounds the command portion of the holder label so status
// output stays readable.
const maxHolderCmd = 60

// buildHolder produces the "user:command" label recorded against the lock.
func buildHolder(username string, command []string) string {
	joined := strings.Join(command, " ")
	if len(joined) > maxHolderCmd {
		joined = joined[:maxHolderCmd]
	}
	return username + ":" + joined
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}

// exitCodeFor maps a workload error to a shell-style exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return 127
	}
	return 1
}

// fnRun acquires priority, runs the workload with inherited stdio and
// releases no matter how the workload ends. Returns the process exit code.
func fnRun(socketPath string, command []string) int {
	holder := buildHolder(currentUsername(), command)

	var reply types.ControlReply
	if err := control.Send(socketPath, types.ControlRequest{Cmd: "acquire", Holder: holder}, &reply); err != nil {
		fmt.Fprintf(os.Stderr, "[sentinel] ERROR: could not contact daemon: %v\n", err)
		fmt.Fprintln(os.Stderr, "[sentinel] is sentineld running? start it with: sudo systemctl start sentineld")
		return 1
	}
	fmt.Printf("[sentinel] %s\n", reply.Message)

	// The workload shares our terminal, so Ctrl+C reaches it directly.
	// Ignore the signal here so the release below always runs.
	signal.Ignore(os.Interrupt)
	defer signal.Reset(os.Interrupt)

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	runErr := cmd.Run()
	code := exitCodeFor(runErr)
	if errors.Is(runErr, exec.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "[sentinel] command not found: %s\n", command[0])
	}

	if err := control.Send(socketPath, types.ControlRequest{Cmd: "release", Holder: holder}, &reply); err != nil {
		fmt.Fprintf(os.Stderr, "[sentinel] ERROR: release failed: %v\n", err)
		if code == 0 {
			code = 1
		}
		return code
	}
	fmt.Printf("[sentinel] %s\n", reply.Message)
	return code
}
