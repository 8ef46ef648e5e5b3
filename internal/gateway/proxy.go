package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const (
	// proxyTimeout caps a whole proxied exchange, long enough for slow
	// token-streaming completions.
	proxyTimeout = 300 * time.Second
	// proxyChunkSize bounds per-read buffering so open-ended responses
	// stream through instead of accumulating.
	proxyChunkSize = 8192
)

// handleProxy gates and forwards /v1/* traffic to the inference backend.
//
// @Summary  Gated inference proxy
// @Router   /v1/{path} [get]
// @Router   /v1/{path} [post]
// @Router   /v1/{path} [delete]
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	status := g.svc.Status()
	if ok, reason := accepting(status); !ok {
		proxyDeniedTotal.WithLabelValues(status.State).Inc()
		writeJSONError(w, http.StatusServiceUnavailable, "inference_unavailable", reason, status.State)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), proxyTimeout)
	defer cancel()

	target := g.backendURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	upReq, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "proxy_error", err.Error(), status.State)
		return
	}
	for key, vals := range r.Header {
		switch strings.ToLower(key) {
		case "host", "content-length":
			continue
		}
		for _, v := range vals {
			upReq.Header.Add(key, v)
		}
	}

	resp, err := g.client.Do(upReq)
	if err != nil {
		g.log.Warn().Err(err).Str("target", target).Msg("backend unreachable")
		writeJSONError(w, http.StatusBadGateway, "backend_unreachable", err.Error(), status.State)
		return
	}
	defer resp.Body.Close()

	for key, vals := range resp.Header {
		// our own transport framing is authoritative
		if strings.EqualFold(key, "Transfer-Encoding") {
			continue
		}
		for _, v := range vals {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	g.relay(w, resp.Body)
}

// relay streams the backend's body through in bounded chunks, flushing after
// each write so token streams reach the client as they are produced. Client
// disconnects are normal for cancelled requests and are swallowed.
func (g *Gateway) relay(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, proxyChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				if !clientGone(werr) {
					g.log.Debug().Err(werr).Msg("proxy write failed")
				}
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF && !clientGone(err) {
				g.log.Debug().Err(err).Msg("proxy read ended")
			}
			return
		}
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.Canceled)
}
