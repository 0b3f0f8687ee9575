package main

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// Presence status values accepted by SetStatus.
const (
	StatusOnline = "Online"
	StatusHidden = "Hidden"
)

// sendMessageBody is the wire shape shared by send and edit. Exactly one of
// ClientMessageID (send) and SkypeEditedID (edit) is populated.
type sendMessageBody struct {
	Content         string `json:"content"`
	MessageType     string `json:"messagetype"`
	ContentType     string `json:"contenttype"`
	ClientMessageID string `json:"clientmessageid,omitempty"`
	SkypeEditedID   string `json:"skypeeditedid,omitempty"`
}

// newSendMessageBody builds the message payload. A fresh millisecond id is
// generated for a plain send; an edit references the prior send's id instead
// and carries no client message id.
func newSendMessageBody(text, editID string) (sendMessageBody, string) {
	id := strconv.FormatInt(time.Now().UnixMilli(), 10)
	body := sendMessageBody{
		Content:     text,
		MessageType: "RichText",
		ContentType: "text",
	}
	if editID != "" {
		body.SkypeEditedID = editID
	} else {
		body.ClientMessageID = id
	}
	return body, id
}

// Send delivers a message to a contact. The returned id is the
// client-generated message id, usable later as an edit target. An empty id
// with a nil error means the service did not accept the message; delivery is
// best-effort and a declined send is a routine outcome, not an error.
func (t *Transport) Send(ctx context.Context, username, text string) (string, error) {
	return t.send(ctx, username, text, "")
}

// Edit replaces the content of a previously sent message in place.
func (t *Transport) Edit(ctx context.Context, username, text, editID string) (string, error) {
	return t.send(ctx, username, text, editID)
}

func (t *Transport) send(ctx context.Context, username, text, editID string) (string, error) {
	body, id := newSendMessageBody(text, editID)

	resp, err := t.request(ctx, "send_message", requestParams{
		format: []any{t.creds.Cloud, conversationID(username)},
		json:   body,
	})
	if err != nil {
		// Credential and transport failures propagate; only a response the
		// service declined is the routine sentinel outcome below.
		return "", err
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}

	// Success is judged solely by the presence of OriginalArrivalTime. An
	// error body or a shape we don't recognize means the message was not
	// accepted, which is a normal outcome (target offline, rate limited).
	var res sendMessageResponse
	if json.Unmarshal(data, &res) != nil || len(res.OriginalArrivalTime) == 0 || string(res.OriginalArrivalTime) == "null" {
		t.logger.Log("send to %s not accepted (status %d)", username, resp.StatusCode)
		return "", nil
	}
	return id, nil
}

// Contacts lists the signed-in user's contacts.
func (t *Transport) Contacts(ctx context.Context, username string) ([]Contact, error) {
	var res contactsResponse
	err := t.requestJSON(ctx, "contacts", requestParams{format: []any{username}}, &res)
	if err != nil {
		return nil, err
	}
	return res.Contacts, nil
}

// Profile loads the signed-in user's identity document.
func (t *Transport) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := t.requestJSON(ctx, "profile", requestParams{}, &p); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, nil
	}
	return &p, nil
}

// ContactProfiles fetches profile details for specific contacts.
func (t *Transport) ContactProfiles(ctx context.Context, usernames ...string) ([]Contact, error) {
	form := url.Values{"contacts[]": usernames}
	var res []Contact
	if err := t.requestJSON(ctx, "contact_profiles", requestParams{form: form}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Chats lists conversations, newest first, starting at startTime.
func (t *Transport) Chats(ctx context.Context, startTime int64, pageSize int) ([]Conversation, error) {
	var res conversationsResponse
	err := t.requestJSON(ctx, "chats", requestParams{
		format: []any{t.creds.Cloud, startTime, pageSize},
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Conversations, nil
}

// Messages loads a page of message history for one conversation.
func (t *Transport) Messages(ctx context.Context, username string, startTime int64, pageSize int) ([]Message, error) {
	var res messagesResponse
	err := t.requestJSON(ctx, "messages", requestParams{
		format: []any{t.creds.Cloud, conversationID(username), startTime, pageSize},
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// PollEvents performs one long-poll fetch of new events for this session's
// endpoint. The call blocks until the service has events or its long-poll
// timeout elapses. An absent batch decodes as nil.
func (t *Transport) PollEvents(ctx context.Context) ([]EventMessage, error) {
	var res pollResponse
	err := t.requestJSON(ctx, "poll", requestParams{
		format: []any{t.creds.Cloud},
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.EventMessages, nil
}

// SubscribeToResources registers the long-poll channel for the resource
// topics this client consumes.
func (t *Transport) SubscribeToResources(ctx context.Context) error {
	return t.requestJSON(ctx, "subscriptions", requestParams{
		json: map[string]any{
			"interestedResources": []string{
				"/v1/threads/ALL",
				"/v1/users/ME/contacts/ALL",
				"/v1/users/ME/conversations/ALL/messages",
				"/v1/users/ME/conversations/ALL/properties",
			},
			"template":    "raw",
			"channelType": "httpLongPoll",
		},
	}, nil)
}

// CreateStatusEndpoint publishes the presence document describing this
// client's capabilities. Must run before SetStatus.
func (t *Transport) CreateStatusEndpoint(ctx context.Context) error {
	return t.requestJSON(ctx, "presence_doc", requestParams{
		json: map[string]any{
			"id":          "messagingService",
			"type":        "EndpointPresenceDoc",
			"selfLink":    "uri",
			"privateInfo": map[string]string{"epname": "skype"},
			"publicInfo": map[string]any{
				"capabilities":     "video|audio",
				"type":             1,
				"skypeNameVersion": "skype.com",
				"nodeInfo":         "xx",
				"version":          "908/1.30.0.128//skype.com",
			},
		},
	}, nil)
}

// SetStatus sets the presence status, StatusOnline or StatusHidden.
func (t *Transport) SetStatus(ctx context.Context, status string) error {
	return t.requestJSON(ctx, "status", requestParams{
		json: map[string]string{"status": status},
	}, nil)
}
