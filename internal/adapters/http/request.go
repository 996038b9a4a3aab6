package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// decodeBody parses a JSON request body strictly. Unknown fields, trailing
// data, and oversized bodies are all rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body")
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

// clientIP derives the caller identity used for rate limiting and event
// attribution. Forwarding headers are trusted in proxy deployments; the
// socket address is the fallback.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return canonicalIP(ip)
		}
	}
	for _, header := range []string{"X-Real-Ip", "X-Client-Ip"} {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return canonicalIP(v)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return canonicalIP(host)
}

func canonicalIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil {
		return "unknown"
	}
	if ip.IsLoopback() {
		return "local"
	}
	return ip.String()
}
