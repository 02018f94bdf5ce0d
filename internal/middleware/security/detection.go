package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
)

const maxURLLength = 2048

type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector flags probing requests and resolves client IPs. Forwarding
// headers are honored only when the direct peer is a trusted proxy.
type Detector struct {
	suspicious atomic.Int64

	mu      sync.RWMutex
	proxies []netip.Prefix
}

func NewDetector() *Detector {
	d := &Detector{}
	for _, p := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		d.proxies = append(d.proxies, netip.MustParsePrefix(p))
	}
	return d
}

var (
	scanFragments = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}
	scanMethods  = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// reason returns why r looks like a scan, or "" when it does not.
func reason(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, f := range scanFragments {
		if strings.Contains(target, f) {
			return "pattern " + f
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "scanner " + a
		}
	}
	if scanMethods[r.Method] {
		return "method " + r.Method
	}
	if len(r.URL.String()) > maxURLLength {
		return "long url"
	}
	return ""
}

// DetectSuspiciousRequest counts and returns the reason r looks like a scan.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) (string, bool) {
	why := reason(r)
	if why == "" {
		return "", false
	}
	d.suspicious.Add(1)
	return why, true
}

// Middleware logs scans and passes them on; unknown routes 404 anyway.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if why, ok := d.DetectSuspiciousRequest(r); ok {
			slog.WarnContext(r.Context(), "Suspicious request",
				"reason", why,
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		addr, perr := netip.ParseAddr(r.RemoteAddr)
		if perr != nil {
			return r.RemoteAddr
		}
		peer = netip.AddrPortFrom(addr, 0)
	}
	direct := peer.Addr().Unmap()
	if !d.trusted(direct) {
		return direct.String()
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	return direct.String()
}

func (d *Detector) trusted(addr netip.Addr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}

// AddTrustedProxy extends the default private ranges with cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.proxies = append(d.proxies, p.Masked())
	d.mu.Unlock()
	return nil
}
