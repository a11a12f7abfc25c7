// Package messages builds the user-facing titles and bodies of translated events.
package messages

import "fmt"

// ─── Chat & presence builders ────────────────────────────────────────────────

// ChatMessage titles the notification with the sender's roster name, falling back to the JID.
func ChatMessage(friendlyName, fromJID, body string) (string, string) {
	title := friendlyName
	if title == "" {
		title = fromJID
	}
	if body == "" {
		body = ChatMessageFallbackBody
	}
	return title, body
}

func PresenceRequest(friendlyName, fromJID string) (string, string) {
	return PresenceRequestTitle, fmt.Sprintf(PresenceRequestBody, displayName(friendlyName, fromJID))
}

// ─── Identity builders ───────────────────────────────────────────────────────

func IdentityUpdated(state string) (string, string) {
	if state == "" {
		return IdentityUpdatedTitle, ""
	}
	return IdentityUpdatedTitle, fmt.Sprintf(IdentityUpdatedBody, state)
}

// ─── Contract builders ───────────────────────────────────────────────────────

func ContractProposed(message string) (string, string) {
	return ContractProposedTitle, message
}

func ContractSigned(contractID, legalID string) (string, string) {
	return ContractSignedTitle, fmt.Sprintf(ContractSignedBody, contractID, legalID)
}

func ContractUpdated() (string, string) {
	return ContractUpdatedTitle, ""
}

func ContractDeleted() (string, string) {
	return ContractDeletedTitle, ""
}

// ─── Petition builders ───────────────────────────────────────────────────────

func Petition(friendlyName, fromJID, purpose string) (string, string) {
	return fmt.Sprintf(PetitionFromTitle, displayName(friendlyName, fromJID)), purpose
}

// ─── Wallet builders ─────────────────────────────────────────────────────────

func BalanceUpdated(amount, currency string) (string, string) {
	return BalanceUpdatedTitle, fmt.Sprintf(BalanceUpdatedBody, amount, currency)
}

func TokenAdded(friendlyName string) (string, string) {
	return TokenAddedTitle, friendlyName
}

func TokenRemoved(friendlyName string) (string, string) {
	return TokenRemovedTitle, friendlyName
}

func displayName(friendlyName, jid string) string {
	if friendlyName != "" {
		return friendlyName
	}
	return jid
}
