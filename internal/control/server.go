// Package control serves the daemon's local request/response protocol: one
// JSON object per unix-socket connection, one JSON reply, then close.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"sentineld/internal/arbiter"
	"sentineld/internal/common/fsutil"
	"sentineld/pkg/types"
)

// Service defines the arbiter operations the control protocol exposes.
type Service interface {
	Acquire(holder string) arbiter.AcquireResult
	Release(holder string) arbiter.ReleaseResult
	Status() types.StatusResponse
}

// connTimeout bounds a whole connection: read, arbiter call (which may shell
// out for the liveness probe) and write.
const connTimeout = 15 * time.Second

// Server accepts control connections on a unix socket. Each connection is
// handled on its own goroutine; the arbiter serializes the actual state
// access.
type Server struct {
	svc  Service
	path string
	log  zerolog.Logger
	ln   net.Listener
}

// NewServer prepares a control server bound to the socket at path.
func NewServer(path string, svc Service, log zerolog.Logger) *Server {
	return &Server{svc: svc, path: path, log: log}
}

// Start binds the socket and begins accepting. A stale socket from an
// unclean shutdown is removed first. The socket is world-writable so
// unprivileged research users can acquire the lock.
func (s *Server) Start() error {
	if err := fsutil.EnsureParentDir(s.path, 0o755); err != nil {
		return fmt.Errorf("socket dir: %w", err)
	}
	if fsutil.PathExists(s.path) {
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o666); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.ln = ln
	s.log.Info().Str("path", s.path).Msg("control server listening")
	go s.acceptLoop()
	return nil
}

// Close stops accepting and removes the socket.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("control accept failed")
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	var req types.ControlRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.reply(conn, types.ControlReply{OK: false, Message: "invalid request: " + err.Error()})
		return
	}
	switch req.Cmd {
	case "acquire":
		res := s.svc.Acquire(holderOrUnknown(req.Holder))
		s.reply(conn, types.ControlReply{OK: true, Message: res.Message})
	case "release":
		res := s.svc.Release(holderOrUnknown(req.Holder))
		s.reply(conn, types.ControlReply{OK: true, Message: res.Message})
	case "status":
		s.reply(conn, s.svc.Status())
	default:
		s.reply(conn, types.ControlReply{OK: false, Message: fmt.Sprintf("unknown command: %q", req.Cmd)})
	}
}

func (s *Server) reply(conn net.Conn, v any) {
	if err := json.NewEncoder(conn).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("control reply write failed")
	}
}

func holderOrUnknown(holder string) string {
	if holder == "" {
		return "unknown"
	}
	return holder
}
