package main

import (
	"context"
	"strings"
)

// Skype is the high-level session facade: it owns a Transport and the cached
// profile and contact list, and sequences the post-login calls in the order
// the service expects.
type Skype struct {
	transport *Transport
	username  string

	Profile  *Profile
	Contacts []Contact
}

func NewSkype(client httpClient, logger Logger) *Skype {
	return &Skype{transport: NewTransport(client, logger)}
}

// Transport exposes the underlying session for direct endpoint access.
func (s *Skype) Transport() *Transport {
	return s.transport
}

// Login authenticates and brings the session fully online: resource
// subscription, profile and contact loading, presence document creation and
// an Online status. The subscription call is the first registration-token
// operation; the token itself was captured during the login handshake's
// endpoint registration.
func (s *Skype) Login(ctx context.Context, username, password string, solver CaptchaSolver) error {
	if err := s.transport.Login(ctx, username, password, solver); err != nil {
		return err
	}
	s.username = username

	if err := s.transport.SubscribeToResources(ctx); err != nil {
		return err
	}

	profile, err := s.transport.Profile(ctx)
	if err != nil {
		return err
	}
	s.Profile = profile

	contacts, err := s.transport.Contacts(ctx, username)
	if err != nil {
		return err
	}
	s.Contacts = contacts

	if err := s.transport.CreateStatusEndpoint(ctx); err != nil {
		return err
	}
	return s.transport.SetStatus(ctx, StatusOnline)
}

// Logout best-effort invalidates the session remotely. Locally held tokens
// are not cleared; callers wanting a dead session drop the Skype value.
func (s *Skype) Logout(ctx context.Context) error {
	return s.transport.Logout(ctx)
}

// Contact looks a contact up by id in the cached contact list.
func (s *Skype) Contact(id string) *Contact {
	for i := range s.Contacts {
		if s.Contacts[i].ID == id {
			return &s.Contacts[i]
		}
	}
	return nil
}

// SendMessage sends text to a contact and returns the message id, or the
// empty sentinel when the service declined the message.
func (s *Skype) SendMessage(ctx context.Context, username, text string) (string, error) {
	return s.transport.Send(ctx, username, text)
}

// EditMessage edits an earlier message in place, identified by the id a
// previous SendMessage returned.
func (s *Skype) EditMessage(ctx context.Context, username, text, messageID string) (string, error) {
	return s.transport.Edit(ctx, username, text, messageID)
}

// Chats lists conversations.
func (s *Skype) Chats(ctx context.Context, startTime int64, pageSize int) ([]Conversation, error) {
	return s.transport.Chats(ctx, startTime, pageSize)
}

// Messages loads message history for one conversation.
func (s *Skype) Messages(ctx context.Context, username string, startTime int64, pageSize int) ([]Message, error) {
	return s.transport.Messages(ctx, username, startTime, pageSize)
}

// OnMessage blocks, delivering every polled event batch to handler together
// with the session, until ctx is cancelled or polling fails.
func (s *Skype) OnMessage(ctx context.Context, handler func(events []EventMessage, s *Skype)) error {
	poller := newUpdatePoller(
		func(ctx context.Context) ([]EventMessage, error) {
			return s.transport.PollEvents(ctx)
		},
		func(events []EventMessage) {
			handler(events, s)
		},
	)
	return poller.Run(ctx)
}

// SenderID extracts the bare username from an event's from URL, which ends
// in the 8:username conversation identifier.
func SenderID(from string) string {
	if i := strings.LastIndex(from, "8:"); i >= 0 {
		return from[i+2:]
	}
	return from
}
