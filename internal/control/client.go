package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"sentineld/pkg/types"
)

const clientTimeout = 15 * time.Second

// Send performs one control round trip: connect, write req, decode the reply
// into out, close. out is a *types.ControlReply for acquire/release and a
// *types.StatusResponse for status.
func Send(socketPath string, req types.ControlRequest, out any) error {
	conn, err := net.DialTimeout("unix", socketPath, 3*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(clientTimeout))
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := json.NewDecoder(conn).Decode(out); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	return nil
}
