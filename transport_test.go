package main

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

// recordedRequest captures one request the fake client saw, with its body
// drained so assertions can inspect it.
type recordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// fakeClient plays back a scripted list of responses and records every
// request. It stands in for the tls client behind the transport's narrow
// Do interface.
type fakeClient struct {
	t         *testing.T
	responses []*http.Response
	requests  []recordedRequest
	err       error
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			f.t.Fatalf("reading request body: %v", err)
		}
		body = string(data)
	}
	f.requests = append(f.requests, recordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header,
		Body:   body,
	})

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		f.t.Fatalf("unexpected request: %s %s", req.Method, req.URL)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func newResponse(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestTransport(t *testing.T, responses ...*http.Response) (*Transport, *fakeClient) {
	t.Helper()
	client := &fakeClient{t: t, responses: responses}
	return NewTransport(client, nil), client
}

func TestCaptureRegToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"with attributes", "abc123; Domain=registrar.skype.com; Expires=...", "abc123"},
		{"bare token", "tok", "tok"},
		{"leading space", " abc123;x", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTransport(t, newResponse(200,
				http.Header{"Set-Registrationtoken": {tt.header}}, "{}"))

			resp, err := tr.request(context.Background(), "logout", requestParams{})
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if got := tr.Credentials().RegToken; got != tt.want {
				t.Errorf("reg token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaptureRegTokenOverwrites(t *testing.T) {
	tr, _ := newTestTransport(t,
		newResponse(200, http.Header{"Set-Registrationtoken": {"first;x"}}, "{}"),
		newResponse(200, http.Header{"Set-Registrationtoken": {"second;x"}}, "{}"),
	)

	for range 2 {
		resp, err := tr.request(context.Background(), "logout", requestParams{})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	if got := tr.Credentials().RegToken; got != "second" {
		t.Errorf("reg token = %q, want %q", got, "second")
	}
}

func TestCaptureCloudPrefix(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		location string
		want     string
	}{
		{"matching redirect", 301, "https://eu-client-s.gateway.messenger.live.com/v1/users/ME/endpoints", "eu-"},
		{"temporary redirect", 307, "https://db3-client-s.gateway.messenger.live.com/foo", "db3-"},
		{"non-matching host", 302, "https://login.skype.com/other", ""},
		{"default gateway host", 302, "https://client-s.gateway.messenger.live.com/foo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redirect := newResponse(tt.status, http.Header{"Location": {tt.location}}, "")
			tr, _ := newTestTransport(t, redirect, newResponse(200, nil, "{}"))

			resp, err := tr.request(context.Background(), "logout", requestParams{})
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if got := tr.Credentials().Cloud; got != tt.want {
				t.Errorf("cloud prefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCloudPrefixUnchangedByNonMatchingRedirect(t *testing.T) {
	tr, client := newTestTransport(t,
		newResponse(302, http.Header{"Location": {"https://us-client-s.gateway.messenger.live.com/a"}}, ""),
		newResponse(200, nil, "{}"),
		newResponse(302, http.Header{"Location": {"https://login.skype.com/b"}}, ""),
		newResponse(200, nil, "{}"),
	)

	for range 2 {
		resp, err := tr.request(context.Background(), "logout", requestParams{})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	if got := tr.Credentials().Cloud; got != "us-" {
		t.Errorf("cloud prefix = %q, want %q", got, "us-")
	}
	if len(client.requests) != 4 {
		t.Errorf("saw %d requests, want 4 (two redirects followed)", len(client.requests))
	}
}

func TestRedirectDemotesToGet(t *testing.T) {
	tr, client := newTestTransport(t,
		newResponse(301, http.Header{"Location": {"https://login.skype.com/moved"}}, ""),
		newResponse(200, nil, "{}"),
	)
	tr.creds.SkypeToken = "tok"

	err := tr.requestJSON(context.Background(), "asm", requestParams{
		form: url.Values{"skypetoken": {"tok"}},
	}, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if len(client.requests) != 2 {
		t.Fatalf("saw %d requests, want 2", len(client.requests))
	}
	follow := client.requests[1]
	if follow.Method != http.MethodGet {
		t.Errorf("follow-up method = %s, want GET", follow.Method)
	}
	if follow.URL != "https://login.skype.com/moved" {
		t.Errorf("follow-up URL = %s", follow.URL)
	}
	if follow.Body != "" {
		t.Errorf("follow-up carried a body: %q", follow.Body)
	}
}

func TestRedirectReplaysBodyOn307(t *testing.T) {
	tr, client := newTestTransport(t,
		newResponse(307, http.Header{"Location": {"https://api.asm.skype.com/v1/skypetokenauth2"}}, ""),
		newResponse(200, nil, "{}"),
	)

	err := tr.requestJSON(context.Background(), "asm", requestParams{
		form: url.Values{"skypetoken": {"tok"}},
	}, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	follow := client.requests[1]
	if follow.Method != http.MethodPost {
		t.Errorf("follow-up method = %s, want POST", follow.Method)
	}
	if follow.Body != "skypetoken=tok" {
		t.Errorf("follow-up body = %q, want original form body", follow.Body)
	}
}

func TestMissingCredentialIssuesNoRequest(t *testing.T) {
	tests := []struct {
		endpoint string
		params   requestParams
		want     string
	}{
		{"contacts", requestParams{format: []any{"alice"}}, "skypeToken"},
		{"send_message", requestParams{format: []any{"", "8:bob"}}, "regToken"},
		{"poll", requestParams{format: []any{""}}, "regToken"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			tr, client := newTestTransport(t)

			_, err := tr.request(context.Background(), tt.endpoint, tt.params)
			var missing *MissingCredentialError
			if !errors.As(err, &missing) {
				t.Fatalf("err = %v, want MissingCredentialError", err)
			}
			if missing.Credential != tt.want {
				t.Errorf("credential = %q, want %q", missing.Credential, tt.want)
			}
			if len(client.requests) != 0 {
				t.Errorf("network call was issued despite missing credential")
			}
		})
	}
}

func TestUnknownEndpoint(t *testing.T) {
	tr, client := newTestTransport(t)

	_, err := tr.request(context.Background(), "no_such_op", requestParams{})
	var unknown *UnknownEndpointError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownEndpointError", err)
	}
	if unknown.Name != "no_such_op" {
		t.Errorf("name = %q", unknown.Name)
	}
	if len(client.requests) != 0 {
		t.Errorf("network call was issued for unknown endpoint")
	}
}

func TestRequestJSONRejectsErrorStatus(t *testing.T) {
	tr, _ := newTestTransport(t, newResponse(500, nil, `<html>gateway error</html>`))

	err := tr.requestJSON(context.Background(), "asm", requestParams{
		form: url.Values{"skypetoken": {"tok"}},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status error", err)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	client := &fakeClient{t: t, err: errors.New("connection reset")}
	tr := NewTransport(client, nil)

	_, err := tr.request(context.Background(), "logout", requestParams{})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("err = %v, want wrapped transport error", err)
	}
}
