package worker

import (
	"net"
	"os"
	"strings"
)

// ExternalEndpoint rewrites a loopback base URL to use the host's name so
// the stored endpoint is reachable from outside this machine. URLs already
// carrying an external host pass through unchanged.
func ExternalEndpoint(baseURL string) string {
	if baseURL == "" {
		return "NA"
	}
	if !strings.Contains(baseURL, "127.0.0.1") && !strings.Contains(baseURL, "localhost") {
		return baseURL
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return baseURL
	}
	// Prefer the fully qualified name when reverse lookup provides one.
	if addrs, err := net.LookupHost(host); err == nil && len(addrs) > 0 {
		if names, err := net.LookupAddr(addrs[0]); err == nil && len(names) > 0 {
			host = strings.TrimSuffix(names[0], ".")
		}
	}
	out := strings.ReplaceAll(baseURL, "127.0.0.1", host)
	return strings.ReplaceAll(out, "localhost", host)
}

// freePort asks the kernel for an unused TCP port on loopback.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
