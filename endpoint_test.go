package main

import (
	"errors"
	"testing"
)

func TestEndpointFormat(t *testing.T) {
	template := newEndpoint("POST", "https://%sclient-s.gateway.messenger.live.com/v1/users/ME/conversations/%s/messages")

	formatted, err := template.Format("eu-", "8:alice")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := "https://eu-client-s.gateway.messenger.live.com/v1/users/ME/conversations/8:alice/messages"
	if formatted.uri != want {
		t.Errorf("uri = %q, want %q", formatted.uri, want)
	}

	// The shared template must not be touched.
	if template.uri != "https://%sclient-s.gateway.messenger.live.com/v1/users/ME/conversations/%s/messages" {
		t.Errorf("template was mutated: %q", template.uri)
	}

	// Formatting again with other args is independent.
	other, err := template.Format("db3-", "8:bob")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if other.uri == formatted.uri {
		t.Errorf("second format aliased the first")
	}
}

func TestEndpointFormatArgCount(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		args []any
		want int
	}{
		{"too few", "https://x/%s/%s", []any{"a"}, 2},
		{"too many", "https://x/%s", []any{"a", "b"}, 1},
		{"none expected", "https://x/fixed", []any{"a"}, 0},
		{"numeric verbs", "https://x?startTime=%d&pageSize=%d", []any{int64(1)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEndpoint("GET", tt.uri).Format(tt.args...)
			var malformed *MalformedEndpointUsageError
			if !errors.As(err, &malformed) {
				t.Fatalf("err = %v, want MalformedEndpointUsageError", err)
			}
			if malformed.Want != tt.want || malformed.Got != len(tt.args) {
				t.Errorf("want/got = %d/%d, expected %d/%d",
					malformed.Want, malformed.Got, tt.want, len(tt.args))
			}
		})
	}
}

func TestCountVerbsIgnoresPercentEncoding(t *testing.T) {
	// The fixed login URLs embed percent-encoded characters; those are not
	// placeholders.
	if n := countVerbs(loginURL); n != 0 {
		t.Errorf("countVerbs(loginURL) = %d, want 0", n)
	}
	if n := countVerbs(logoutURL); n != 0 {
		t.Errorf("countVerbs(logoutURL) = %d, want 0", n)
	}
}

func TestEndpointRequestAttachesCredentials(t *testing.T) {
	creds := &Credentials{SkypeToken: "st", RegToken: "rt"}

	req, err := newEndpoint("GET", "https://api.skype.com/x").withSkypeToken().Request(creds, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if got := req.Header.Get("X-SkypeToken"); got != "st" {
		t.Errorf("X-SkypeToken = %q", got)
	}
	if got := req.Header.Get("RegistrationToken"); got != "" {
		t.Errorf("RegistrationToken unexpectedly set: %q", got)
	}

	req, err = newEndpoint("POST", "https://gw/x").withRegToken().Request(creds, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if got := req.Header.Get("RegistrationToken"); got != "rt" {
		t.Errorf("RegistrationToken = %q", got)
	}
	if got := req.Header.Get("X-SkypeToken"); got != "" {
		t.Errorf("X-SkypeToken unexpectedly set: %q", got)
	}
}

func TestEndpointRequestMissingCredential(t *testing.T) {
	tests := []struct {
		name string
		ep   *Endpoint
		want string
	}{
		{"skype token", newEndpoint("GET", "https://x").withSkypeToken(), "skypeToken"},
		{"reg token", newEndpoint("GET", "https://x").withRegToken(), "regToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ep.Request(&Credentials{}, nil)
			var missing *MissingCredentialError
			if !errors.As(err, &missing) {
				t.Fatalf("err = %v, want MissingCredentialError", err)
			}
			if missing.Credential != tt.want {
				t.Errorf("credential = %q, want %q", missing.Credential, tt.want)
			}
		})
	}
}

func TestCatalogCompleteness(t *testing.T) {
	catalog := newEndpointCatalog()

	operations := []string{
		"login_get", "login_post", "logout", "asm", "endpoint",
		"profile", "contacts", "contact_profiles",
		"send_message", "chats", "messages",
		"poll", "subscriptions", "presence_doc", "status",
	}
	for _, name := range operations {
		if catalog[name] == nil {
			t.Errorf("catalog is missing %q", name)
		}
	}

	// Messaging operations require the registration token, identity
	// operations the skype token.
	for _, name := range []string{"send_message", "chats", "messages", "poll", "subscriptions", "presence_doc", "status"} {
		if !catalog[name].needRegToken {
			t.Errorf("%s should require the registration token", name)
		}
	}
	for _, name := range []string{"endpoint", "profile", "contacts", "contact_profiles"} {
		if !catalog[name].needSkypeToken {
			t.Errorf("%s should require the skype token", name)
		}
	}
	// The login flow and the token exchange run before any credential exists.
	for _, name := range []string{"login_get", "login_post", "asm", "logout"} {
		if catalog[name].needSkypeToken || catalog[name].needRegToken {
			t.Errorf("%s must not require credentials", name)
		}
	}
}

func TestConversationID(t *testing.T) {
	if got := conversationID("alice"); got != "8:alice" {
		t.Errorf("conversationID(alice) = %q", got)
	}
	if got := conversationID("8:alice"); got != "8:alice" {
		t.Errorf("conversationID(8:alice) = %q", got)
	}
	if got := conversationID("19:thread@thread.skype"); got != "19:thread@thread.skype" {
		t.Errorf("conversationID(thread) = %q", got)
	}
}
