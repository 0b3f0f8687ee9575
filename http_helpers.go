package main

import (
	"io"

	http "github.com/bogdanfinn/fhttp"
)

// PseudoHeaderOrder is the HTTP/2 pseudo-header order presented on every
// request. The login pages fingerprint header order alongside the TLS
// profile, so it must stay consistent with the browser profile in use.
var PseudoHeaderOrder = []string{
	":method",
	":authority",
	":scheme",
	":path",
}

// readResponseBody reads the full response body, transparently decompressing
// it. Both the login pages and the gateway compress responses when the
// request advertises encodings, which the browser header set always does.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}
