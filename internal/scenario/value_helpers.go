// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"fmt"
	"net"

	"websocat/internal/netcfg"
)

type builtins struct {
	cfg *netcfg.Config
}

func asString(v Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func mustString(v Value, what string) (string, error) {
	s, ok := asString(v)
	if !ok {
		return "", fmt.Errorf("scenario: %s: expected string, got %T", what, v)
	}
	return s, nil
}

func optString(opts map[string]Value, key, def string) string {
	if v, ok := opts[key]; ok {
		if s, ok := asString(v); ok {
			return s
		}
	}
	return def
}

func optInt(opts map[string]Value, key string, def int) int {
	if v, ok := opts[key]; ok {
		switch n := v.(type) {
		case int64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func optBoolVal(opts map[string]Value, key string, def bool) bool {
	if v, ok := opts[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func joinHostPortIfBare(host, port string) string {
	if port == "" {
		return host
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}
