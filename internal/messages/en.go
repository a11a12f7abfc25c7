package messages

// ─── Chat & presence ─────────────────────────────────────────────────────────

const (
	ChatMessageFallbackBody = "New message"

	PresenceRequestTitle = "Contact request"
	PresenceRequestBody  = "%s wants to add you as a contact."
)

// ─── Identities ──────────────────────────────────────────────────────────────

const (
	IdentityUpdatedTitle = "Identity updated"
	IdentityUpdatedBody  = "Your legal identity is now %s."
)

// ─── Contracts ───────────────────────────────────────────────────────────────

const (
	ContractProposedTitle = "Contract proposal"
	ContractSignedTitle   = "Contract signed"
	ContractSignedBody    = "Contract %s was signed by %s."
	ContractUpdatedTitle  = "Contract updated"
	ContractDeletedTitle  = "Contract deleted"
)

// ─── Petitions ───────────────────────────────────────────────────────────────

const (
	PetitionFromTitle = "Petition from %s"
)

// ─── Wallet ──────────────────────────────────────────────────────────────────

const (
	BalanceUpdatedTitle = "Balance updated"
	BalanceUpdatedBody  = "New balance: %s %s"

	TokenAddedTitle   = "Token added"
	TokenRemovedTitle = "Token removed"
)
