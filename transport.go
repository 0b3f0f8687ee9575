package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"golang.org/x/net/html"
)

// maxRedirects bounds the manual redirect-following loop. The client is
// created with redirect following disabled so the capture hooks below see
// every 3xx hop.
const maxRedirects = 10

type Logger interface {
	Log(format string, args ...any)
}

// httpClient is the slice of tls_client.HttpClient the transport needs.
// Tests substitute scripted fakes here.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials holds the session state captured during login and by the
// response hooks. The skype token comes from the login handshake, the
// registration token from a Set-RegistrationToken response header, and the
// cloud prefix from redirect inspection. The transport is the only writer.
type Credentials struct {
	SkypeToken string
	RegToken   string
	Cloud      string
}

// Transport owns the credential set and dispatches every remote operation
// through the endpoint catalog. Execution is synchronous: one request at a
// time per session.
type Transport struct {
	client    httpClient
	endpoints map[string]*Endpoint
	creds     Credentials
	profile   *BrowserProfile
	logger    Logger
}

func NewTransport(client httpClient, logger Logger) *Transport {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Transport{
		client:    client,
		endpoints: newEndpointCatalog(),
		profile:   DefaultProfile,
		logger:    logger,
	}
}

type noopLogger struct{}

func (noopLogger) Log(format string, args ...any) {}

// Credentials returns a snapshot of the current credential values.
func (t *Transport) Credentials() Credentials {
	return t.creds
}

// requestParams carries the per-call pieces of a dispatch: positional URI
// arguments, exactly one optional body kind, and extra headers.
type requestParams struct {
	format  []any
	form    url.Values
	json    any
	headers http.Header
}

// request resolves an operation name through the catalog and executes it.
func (t *Transport) request(ctx context.Context, name string, p requestParams) (*http.Response, error) {
	ep, ok := t.endpoints[name]
	if !ok {
		return nil, &UnknownEndpointError{Name: name}
	}
	return t.requestEndpoint(ctx, ep, p)
}

// requestEndpoint executes a request against an explicit descriptor. Used by
// request and for the few one-off URLs that are not catalog operations.
func (t *Transport) requestEndpoint(ctx context.Context, ep *Endpoint, p requestParams) (*http.Response, error) {
	if len(p.format) > 0 {
		formatted, err := ep.Format(p.format...)
		if err != nil {
			return nil, err
		}
		ep = formatted
	}

	var body []byte
	contentType := ""
	switch {
	case p.json != nil:
		encoded, err := json.Marshal(p.json)
		if err != nil {
			return nil, err
		}
		body = encoded
		contentType = "application/json"
	case p.form != nil:
		body = []byte(p.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := ep.Request(&t.creds, reader)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	// Credential headers set by ep.Request must survive the merge.
	headers := p.headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	for name, values := range req.Header {
		headers[name] = values
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", t.profile.UserAgent)
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "*/*")
	}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	req.Header = headers

	return t.do(req, body)
}

// requestJSON executes an operation and decodes the response body into out.
// Used for all authenticated JSON operations.
func (t *Transport) requestJSON(ctx context.Context, name string, p requestParams, out any) error {
	resp, err := t.request(ctx, name, p)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", name, resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", name, err)
	}
	return nil
}

// requestDOM executes an operation and parses the response body as an HTML
// document. Only the login flow deals in markup.
func (t *Transport) requestDOM(ctx context.Context, name string, p requestParams) (*html.Node, error) {
	resp, err := t.request(ctx, name, p)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	// html.Parse recovers from malformed markup, matching browser behavior.
	return html.Parse(bytes.NewReader(data))
}

// do executes the request, runs the capture hooks on every response, and
// follows redirects itself so the hooks observe each hop. body is the request
// payload, needed to replay 307/308 redirects.
func (t *Transport) do(req *http.Request, body []byte) (*http.Response, error) {
	for redirects := 0; ; redirects++ {
		resp, err := t.client.Do(req)
		if err != nil {
			t.logger.Log("%s %s -> error: %v", req.Method, req.URL.Path, err)
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
		}
		t.logger.Log("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)

		t.captureCloudPrefix(resp)
		t.captureRegToken(resp)

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" || redirects >= maxRedirects {
			return resp, nil
		}

		next, err := req.URL.Parse(location)
		if err != nil {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		// 301-303 demote to a bodyless GET; 307/308 replay method and body.
		method := req.Method
		var replay io.Reader
		if resp.StatusCode == http.StatusTemporaryRedirect || resp.StatusCode == http.StatusPermanentRedirect {
			replay = bytes.NewReader(body)
		} else {
			method = http.MethodGet
			body = nil
		}

		nextReq, err := http.NewRequest(method, next.String(), replay)
		if err != nil {
			return nil, err
		}
		nextReq = nextReq.WithContext(req.Context())
		nextReq.Header = req.Header.Clone()
		if method == http.MethodGet {
			nextReq.Header.Del("Content-Type")
			nextReq.Header.Del("Content-Length")
		}
		req = nextReq
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// cloudPrefixRe matches redirect targets of the form
// https://<prefix->client-s.gateway..., where <prefix-> names the regional
// cluster that must service message calls for this account.
var cloudPrefixRe = regexp.MustCompile(`https?://([^-]*-)client-s`)

func (t *Transport) captureCloudPrefix(resp *http.Response) {
	if !isRedirect(resp.StatusCode) {
		return
	}
	m := cloudPrefixRe.FindStringSubmatch(resp.Header.Get("Location"))
	if m == nil {
		return
	}
	t.creds.Cloud = m[1]
	t.logger.Log("captured cloud prefix %q", t.creds.Cloud)
}

func (t *Transport) captureRegToken(resp *http.Response) {
	header := resp.Header.Get("Set-RegistrationToken")
	if header == "" {
		return
	}
	token := strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	if token == "" {
		return
	}
	if t.creds.RegToken == "" {
		t.logger.Log("captured registration token")
	}
	t.creds.RegToken = token
}
