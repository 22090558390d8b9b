package fetch

import (
	"fmt"
	"math/rand"
	"net/url"
)

// ProxyRotator picks a transport proxy per request from a configured
// pool. An empty pool means direct connections.
type ProxyRotator struct {
	proxies []*url.URL
}

func NewProxyRotator(proxies []string) (*ProxyRotator, error) {
	parsed := make([]*url.URL, 0, len(proxies))
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", p, err)
		}
		parsed = append(parsed, u)
	}
	return &ProxyRotator{proxies: parsed}, nil
}

// Pick returns a proxy chosen uniformly at random, or nil when no
// proxies are configured.
func (r *ProxyRotator) Pick() *url.URL {
	if r == nil || len(r.proxies) == 0 {
		return nil
	}
	return r.proxies[rand.Intn(len(r.proxies))]
}
