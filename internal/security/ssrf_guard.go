// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService はSSRF防止機能のインターフェースを定義する。
// 購読登録時とリフレッシュワーカーのフェッチ時の両方で使用される。
type SSRFGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストが自動的にブロックされる。
	// DNS再バインディング攻撃への対策も有効化される。
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client

	// ValidateURL はURLの安全性を事前に検証する。
	// スキーム、ホスト、IPアドレスの検証を行い、
	// 危険なURLの場合はエラーを返す。
	ValidateURL(rawURL string) error
}

// allowedSchemes はフェッチ対象として許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// baseBlockedCIDRs は常にブロックされるネットワーク範囲。
// デプロイ固有の内部レンジはSSRF_BLOCKED_CIDRSで追加する。
var baseBlockedCIDRs = []string{
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"127.0.0.0/8",    // ループバック
	"169.254.0.0/16", // リンクローカル。クラウドメタデータIP (169.254.169.254) を含む
	"0.0.0.0/8",      // カレントネットワーク
	"::1/128",        // IPv6ループバック
	"fe80::/10",      // IPv6リンクローカル
	"fc00::/7",       // IPv6ユニークローカル
}

// blockedHostnames はIPに解決する前の段階で拒否するホスト名。
var blockedHostnames = []string{"localhost"}

// ssrfGuard はSSRFGuardServiceの実装。
// ブロック対象のネットワーク範囲は生成時に一度だけパースして保持する。
type ssrfGuard struct {
	blocked []net.IPNet
}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
// extraCIDRsには基本のブロック範囲に加えて拒否するCIDRを指定できる
// （設定のSSRF_BLOCKED_CIDRSがここに渡される）。
// パースできないCIDRは無視する。
func NewSSRFGuard(extraCIDRs ...string) *ssrfGuard {
	g := &ssrfGuard{}
	for _, cidr := range baseBlockedCIDRs {
		g.addBlockedCIDR(cidr)
	}
	for _, cidr := range extraCIDRs {
		g.addBlockedCIDR(cidr)
	}
	return g
}

func (g *ssrfGuard) addBlockedCIDR(cidr string) {
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return
	}
	g.blocked = append(g.blocked, *network)
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// ValidateURLの静的チェックをすり抜けるDNS再バインディング攻撃も
// こちらで防止される。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateURL はURLの安全性をDNS解決なしで事前に検証する。
// HTTPリクエストを送信する前のチェックとして使用する。
// ホスト名で指定されたプライベート宛先はここでは検出できず、
// NewSafeClientのDialer検証に委ねられる。
func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if g.isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを返す。
func (g *ssrfGuard) isBlockedIP(ip net.IP) bool {
	for _, network := range g.blocked {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを返す。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedHostname はホスト名がブロック対象かを返す。
func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return true
		}
	}
	return false
}
