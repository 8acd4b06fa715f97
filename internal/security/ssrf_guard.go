// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrBlockedDestination はSSRF防止ポリシーによりアクセス先が拒否されたことを示す。
var ErrBlockedDestination = errors.New("destination blocked by SSRF policy")

// allowedSchemes はニュースソースとして許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// defaultPorts は既定で許可されるポート。
var defaultPorts = []int{80, 443}

// blockedPrefixes は事前検証でブロックするネットワーク範囲。
// 接続時のIP検証はsafeurlのDialerが行うため、ここではDNS解決を伴わない静的チェックに使う。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),     // RFC 1918
	netip.MustParsePrefix("172.16.0.0/12"),  // RFC 1918
	netip.MustParsePrefix("192.168.0.0/16"), // RFC 1918
	netip.MustParsePrefix("100.64.0.0/10"),  // CGNAT
	netip.MustParsePrefix("127.0.0.0/8"),    // ループバック
	netip.MustParsePrefix("169.254.0.0/16"), // リンクローカル（メタデータIPを含む）
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("224.0.0.0/4"), // マルチキャスト
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// blockedHostnames はブロック対象のホスト名。
var blockedHostnames = []string{"localhost", "localhost.localdomain"}

// Guard はニュースソースへのアクセスに対するSSRF防止機能を提供する。
type Guard struct {
	ports []int
}

// NewGuard はGuardを生成する。portsを省略した場合は80と443のみ許可する。
func NewGuard(ports ...int) *Guard {
	if len(ports) == 0 {
		ports = defaultPorts
	}
	return &Guard{ports: slices.Clone(ports)}
}

// NewClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlがDNS解決後のIPアドレスをDialerで検証するため、
// プライベートIPやメタデータIPへの接続とDNS再バインディングが防止される。
func (g *Guard) NewClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.ports...).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLの安全性を事前に検証する。
// 設定読み込み時とフィード自動検出で得たURLへのリクエスト前に使用する。
func (g *Guard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(allowedSchemes, scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", parsed.Scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || !slices.Contains(g.ports, port) {
			return fmt.Errorf("%w: port %s", ErrBlockedDestination, p)
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(addr) {
			return fmt.Errorf("%w: %s", ErrBlockedDestination, addr)
		}
		return nil
	}

	if slices.Contains(blockedHostnames, strings.ToLower(host)) {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, host)
	}

	return nil
}

// isBlockedAddr はアドレスがブロック対象の範囲に含まれるかを判定する。
// IPv4射影IPv6アドレスはIPv4として判定する。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
