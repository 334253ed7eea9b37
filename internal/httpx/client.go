// Package httpx builds the HTTP clients used for all NCBI traffic, with
// proxy support and transport tuning for large sequential file transfers.
package httpx

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/constants"
)

// NewTransferClient creates an HTTP client tuned for file transfers against
// the NCBI FTP-over-HTTPS tree.
//
// Key characteristics:
//   - Proxy support (NewClient provides the base with proxy settings)
//   - Connection reuse across the many small files of an assembly directory
//   - Disabled compression (genomic files are already gzipped)
//   - HTTP/2 with a runtime toggle (DISABLE_HTTP2 env var)
//   - No overall timeout; transfers are bounded by context cancellation
func NewTransferClient(cfg *config.Config) (*nethttp.Client, error) {
	baseClient, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM proxy mode wraps the transport in a negotiator, so the
		// tuning below cannot be applied. Clear the request timeout and
		// use the client as-is.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	tr.MaxIdleConns = 64
	tr.MaxIdleConnsPerHost = 16
	tr.MaxConnsPerHost = 16
	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout
	tr.TLSHandshakeTimeout = constants.HTTPTLSHandshakeTimeout
	tr.ExpectContinueTimeout = constants.HTTPExpectContinueTimeout
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true

	_ = http2.ConfigureTransport(tr)

	// Runtime toggle for HTTP/2 (compatibility escape hatch).
	if os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	// Proxies often mishandle HTTP/2 multiplexing mid-transfer; fall back
	// to HTTP/1.1 whenever a proxy is active unless the user forces it.
	if proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0
	return baseClient, nil
}

func proxyActive(cfg *config.Config) bool {
	if cfg == nil {
		return envProxySet()
	}
	switch cfg.Proxy.Mode {
	case "no-proxy", "":
		return false
	case "system":
		return envProxySet()
	default:
		// basic, ntlm
		return true
	}
}

func envProxySet() bool {
	return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
		os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
}
