package messages_test

import (
	"testing"

	"vn.io.arda/notification-pipeline/internal/messages"
)

func TestChatMessage_FallsBackToJID(t *testing.T) {
	title, body := messages.ChatMessage("", "alice@example.com", "")
	if title != "alice@example.com" {
		t.Fatalf("title = %q", title)
	}
	if body != messages.ChatMessageFallbackBody {
		t.Fatalf("body = %q", body)
	}
}

func TestPetition_UsesFriendlyName(t *testing.T) {
	title, body := messages.Petition("Bob", "bob@example.com", "KYC check")
	if title != "Petition from Bob" || body != "KYC check" {
		t.Fatalf("got %q / %q", title, body)
	}
}

func TestBalanceUpdated(t *testing.T) {
	_, body := messages.BalanceUpdated("12.5", "EUR")
	if body != "New balance: 12.5 EUR" {
		t.Fatalf("body = %q", body)
	}
}
