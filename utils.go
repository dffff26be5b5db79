package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"strings"

	"sharedcanvas/internal/config"
)

var (
	errMalformedMessage = errors.New("malformed message")
	errUnknownEvent     = errors.New("unknown event type")
)

// inboundTypes lists the events a client may send.
var inboundTypes = map[string]bool{
	TypeStartDrawing: true,
	TypeStopDrawing:  true,
	TypeDraw:         true,
	TypeUndo:         true,
	TypeRedo:         true,
	TypeClearAll:     true,
}

func decodeIncoming(data []byte) (IncomingMessage, error) {
	var msg IncomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if !inboundTypes[msg.Type] {
		return msg, fmt.Errorf("%w: %q", errUnknownEvent, msg.Type)
	}
	return msg, nil
}

// getIP prefers proxy headers over the socket address.
func getIP(r *http.Request) (netip.Addr, bool) {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(ip)); err == nil {
			return addr.Unmap(), true
		}
	}

	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap(), true
		}
	}

	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(r.RemoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
