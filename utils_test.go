package main

import (
	"errors"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestDecodeIncoming(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"draw", `{"type":"draw","data":{"startX":1,"startY":2,"endX":3,"endY":4}}`, TypeDraw, nil},
		{"signal without data", `{"type":"undo"}`, TypeUndo, nil},
		{"not json", `{"type":`, "", errMalformedMessage},
		{"wrong shape", `["draw"]`, "", errMalformedMessage},
		{"unknown", `{"type":"spin"}`, "", errUnknownEvent},
		{"outbound only", `{"type":"initializeCanvas"}`, "", errUnknownEvent},
		{"missing type", `{"data":{}}`, "", errUnknownEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeIncoming([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Type != tt.want {
				t.Errorf("type = %q, want %q", msg.Type, tt.want)
			}
		})
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
		ok         bool
	}{
		{"remote addr", "203.0.113.9:5000", nil, "203.0.113.9", true},
		{"ipv6 remote addr", "[2001:db8::1]:5000", nil, "2001:db8::1", true},
		{"mapped ipv4", "[::ffff:203.0.113.9]:5000", nil, "203.0.113.9", true},
		{"real ip wins", "10.0.0.1:1", map[string]string{"X-Real-Ip": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"}, "198.51.100.1", true},
		{"first forwarded", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.3"}, "198.51.100.2", true},
		{"bad header falls back", "10.0.0.1:1", map[string]string{"X-Real-Ip": "nonsense"}, "10.0.0.1", true},
		{"unparseable", "pipe", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			got, ok := getIP(req)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != netip.MustParseAddr(tt.want) {
				t.Errorf("addr = %s, want %s", got, tt.want)
			}
		})
	}
}
