package bookapi

import (
	"fmt"
	"net/http"

	"golang.org/x/net/proxy"
)

// newTransport returns the default transport, or one dialing through a SOCKS5
// proxy when proxyAddr is set.
func newTransport(proxyAddr string) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxyAddr == "" {
		return base, nil
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("connect SOCKS5 proxy %s: %w", proxyAddr, err)
	}

	base.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		base.DialContext = cd.DialContext
	} else {
		base.Dial = dialer.Dial //nolint:staticcheck // fallback for dialers without context support
	}

	return base, nil
}
