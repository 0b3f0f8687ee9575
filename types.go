package main

import "encoding/json"

// Remote response shapes. Each struct models exactly the fields this client
// inspects; unknown fields are tolerated and ignored.

// Profile is the signed-in user's identity document.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayname"`
}

// Contact is one entry of the contact list.
type Contact struct {
	ID          string `json:"id"`
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Authorized  bool   `json:"authorized"`
	Blocked     bool   `json:"blocked"`
}

type contactsResponse struct {
	Contacts []Contact `json:"contacts"`
}

// Conversation is one entry of the chat list.
type Conversation struct {
	ID               string         `json:"id"`
	TargetLink       string         `json:"targetLink"`
	LastMessage      *Message       `json:"lastMessage"`
	Properties       map[string]any `json:"properties"`
	ThreadProperties map[string]any `json:"threadProperties"`
}

type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// Message is one message of a conversation history page.
type Message struct {
	ID                  string `json:"id"`
	ClientMessageID     string `json:"clientmessageid"`
	SkypeEditedID       string `json:"skypeeditedid"`
	ConversationLink    string `json:"conversationLink"`
	Content             string `json:"content"`
	From                string `json:"from"`
	IMDisplayName       string `json:"imdisplayname"`
	MessageType         string `json:"messagetype"`
	ComposeTime         string `json:"composetime"`
	OriginalArrivalTime string `json:"originalarrivaltime"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// sendMessageResponse carries the only field send/edit success is judged by.
// RawMessage keeps the check shape-agnostic; the service has returned both
// string and numeric forms.
type sendMessageResponse struct {
	OriginalArrivalTime json.RawMessage `json:"OriginalArrivalTime"`
}

// EventMessage is one entry of a long-poll batch.
type EventMessage struct {
	ID           int64          `json:"id"`
	Type         string         `json:"type"`
	ResourceType string         `json:"resourceType"`
	ResourceLink string         `json:"resourceLink"`
	Resource     *EventResource `json:"resource"`
}

// EventResource is the payload of a message-related event.
type EventResource struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	From             string `json:"from"`
	ConversationLink string `json:"conversationLink"`
	Content          string `json:"content"`
	IMDisplayName    string `json:"imdisplayname"`
	MessageType      string `json:"messagetype"`
}

type pollResponse struct {
	EventMessages []EventMessage `json:"eventMessages"`
}
