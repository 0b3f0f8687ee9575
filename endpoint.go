package main

import (
	"fmt"
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

const (
	loginURL  = "https://login.skype.com/login?client_id=578134&redirect_uri=https%3A%2F%2Fweb.skype.com"
	logoutURL = "https://login.skype.com/logout?client_id=578134&redirect_uri=https%3A%2F%2Fweb.skype.com&intsrc=client-_-webapp-_-production-_-go-signin"

	gatewayHost = "client-s.gateway.messenger.live.com"

	msnp24ChatsView    = "view=msnp24Equivalent&targetType=Passport|Skype|Lync|Thread|PSTN"
	msnp24MessagesView = "view=msnp24Equivalent|supportsMessageProperties&targetType=Passport|Skype|Lync|Thread|PSTN"
)

// Endpoint describes one remote operation: method, URI template and which of
// the two session credentials the request must carry. Catalog entries are
// shared read-only templates; Format returns a fresh value instead of
// mutating the template.
type Endpoint struct {
	method         string
	uri            string
	needSkypeToken bool
	needRegToken   bool
}

func newEndpoint(method, uri string) *Endpoint {
	return &Endpoint{method: method, uri: uri}
}

// withSkypeToken marks the endpoint as requiring the X-SkypeToken header.
// Only used while building the catalog.
func (e *Endpoint) withSkypeToken() *Endpoint {
	e.needSkypeToken = true
	return e
}

// withRegToken marks the endpoint as requiring the RegistrationToken header.
func (e *Endpoint) withRegToken() *Endpoint {
	e.needRegToken = true
	return e
}

// countVerbs counts the %s/%d placeholders in a URI template. Percent-encoded
// characters in the fixed URLs (e.g. %3A) are not placeholders.
func countVerbs(uri string) int {
	n := 0
	for i := 0; i+1 < len(uri); i++ {
		if uri[i] == '%' && (uri[i+1] == 's' || uri[i+1] == 'd') {
			n++
			i++
		}
	}
	return n
}

// Format substitutes positional arguments into the URI template and returns a
// new Endpoint. The argument count must match the placeholder count exactly.
func (e *Endpoint) Format(args ...any) (*Endpoint, error) {
	want := countVerbs(e.uri)
	if len(args) != want {
		return nil, &MalformedEndpointUsageError{URI: e.uri, Want: want, Got: len(args)}
	}
	formatted := *e
	formatted.uri = fmt.Sprintf(e.uri, args...)
	return &formatted, nil
}

// Request builds the HTTP request for this endpoint, attaching whichever
// credential headers the endpoint requires. A required credential that is
// absent from creds fails before any network activity.
func (e *Endpoint) Request(creds *Credentials, body io.Reader) (*http.Request, error) {
	if e.needSkypeToken && creds.SkypeToken == "" {
		return nil, &MissingCredentialError{Credential: "skypeToken"}
	}
	if e.needRegToken && creds.RegToken == "" {
		return nil, &MissingCredentialError{Credential: "regToken"}
	}

	req, err := http.NewRequest(e.method, e.uri, body)
	if err != nil {
		return nil, err
	}
	if e.needSkypeToken {
		req.Header.Set("X-SkypeToken", creds.SkypeToken)
	}
	if e.needRegToken {
		req.Header.Set("RegistrationToken", creds.RegToken)
	}
	return req, nil
}

// newEndpointCatalog builds the fixed operation-name to endpoint mapping.
// The catalog is constructed once per Transport and never mutated afterwards;
// it holds no credentials and is safe to share.
func newEndpointCatalog() map[string]*Endpoint {
	return map[string]*Endpoint{
		"login_get":  newEndpoint(http.MethodGet, loginURL),
		"login_post": newEndpoint(http.MethodPost, loginURL),
		"logout":     newEndpoint(http.MethodGet, logoutURL),

		"asm": newEndpoint(http.MethodPost, "https://api.asm.skype.com/v1/skypetokenauth"),

		"endpoint": newEndpoint(http.MethodPost,
			"https://"+gatewayHost+"/v1/users/ME/endpoints").
			withSkypeToken(),

		"profile": newEndpoint(http.MethodGet,
			"https://api.skype.com/users/self/displayname").
			withSkypeToken(),

		"contacts": newEndpoint(http.MethodGet,
			"https://contacts.skype.com/contacts/v1/users/%s/contacts").
			withSkypeToken(),

		"contact_profiles": newEndpoint(http.MethodPost,
			"https://api.skype.com/users/self/contacts/profiles").
			withSkypeToken(),

		"send_message": newEndpoint(http.MethodPost,
			"https://%s"+gatewayHost+"/v1/users/ME/conversations/%s/messages").
			withRegToken(),

		"chats": newEndpoint(http.MethodGet,
			"https://%s"+gatewayHost+"/v1/users/ME/conversations?startTime=%d&pageSize=%d&"+msnp24ChatsView).
			withRegToken(),

		"messages": newEndpoint(http.MethodGet,
			"https://%s"+gatewayHost+"/v1/users/ME/conversations/%s/messages?startTime=%d&pageSize=%d&"+msnp24MessagesView).
			withRegToken(),

		"poll": newEndpoint(http.MethodPost,
			"https://%s"+gatewayHost+"/v1/users/ME/endpoints/SELF/subscriptions/0/poll").
			withRegToken(),

		"subscriptions": newEndpoint(http.MethodPost,
			"https://"+gatewayHost+"/v1/users/ME/endpoints/SELF/subscriptions").
			withRegToken(),

		"presence_doc": newEndpoint(http.MethodPut,
			"https://"+gatewayHost+"/v1/users/ME/endpoints/SELF/presenceDocs/messagingService").
			withRegToken(),

		"status": newEndpoint(http.MethodPut,
			"https://"+gatewayHost+"/v1/users/ME/presenceDocs/messagingService").
			withRegToken(),
	}
}

// conversationID maps a bare username to the 1:1 conversation identifier the
// gateway expects.
func conversationID(username string) string {
	if strings.Contains(username, ":") {
		return username
	}
	return "8:" + username
}
