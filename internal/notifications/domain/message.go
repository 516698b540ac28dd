package domain

import (
	"fmt"
	"strings"

	"user-lifecycle/pkg/events"
)

// Message is a plain-text mail
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate requires a recipient
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrRecipientRequired
	}
	return nil
}

// WelcomeMessage is sent when an account is created
func WelcomeMessage(email, userName string) Message {
	return Message{
		To:      email,
		Subject: "Welcome!",
		Body:    fmt.Sprintf("Hello, %s! Your account has been successfully created.", userName),
	}
}

// AccountDeletedMessage is sent when an account is deleted
func AccountDeletedMessage(email, userName string) Message {
	return Message{
		To:      email,
		Subject: "Account deleted",
		Body:    fmt.Sprintf("Hello, %s! Your account has been deleted.", userName),
	}
}

// MessageFor returns the mail announcing event. ok is false for operations
// that produce no mail.
func MessageFor(event events.LifecycleEvent) (msg Message, ok bool) {
	switch event.Operation {
	case events.OperationCreate:
		return WelcomeMessage(event.Email, event.UserName), true
	case events.OperationDelete:
		return AccountDeletedMessage(event.Email, event.UserName), true
	default:
		return Message{}, false
	}
}
