package scraper

import (
	"strings"
	"sync"
)

// Registry はホスト名からスクレイパーを解決するレジストリ。
// 登録されていないホストにはフォールバック（通常はDefaultScraper）を返す。
// 登録は起動時に行う想定だが、解決はワーカーからも並行に呼ばれるため
// ロックで保護する。
type Registry struct {
	mu       sync.RWMutex
	byHost   map[string]Scraper
	fallback Scraper
}

// NewRegistry はRegistryの新しいインスタンスを生成する。
func NewRegistry(fallback Scraper) *Registry {
	return &Registry{
		byHost:   make(map[string]Scraper),
		fallback: fallback,
	}
}

// Register はホスト名にスクレイパーを関連付ける。
// ホスト名は小文字に正規化される。同一ホストへの再登録は上書きになる。
func (r *Registry) Register(host string, s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHost[strings.ToLower(host)] = s
}

// Resolve はホスト名に対応するスクレイパーを返す。
// 未登録のホストにはフォールバックを返すため、戻り値がnilになることはない。
func (r *Registry) Resolve(host string) Scraper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byHost[strings.ToLower(host)]; ok {
		return s
	}
	return r.fallback
}
