package routing

// Page keys understood by the navigation layer.
const (
	PageChat            = "chat"
	PageContacts        = "contacts"
	PagePresenceRequest = "presence-request"
	PageSettings        = "settings"
	PageIdentity        = "identity"
	PageKycApplication  = "kyc-application"
	PageContract        = "contract"
	PageContracts       = "contracts"
	PageToken           = "token"
	PageTokens          = "tokens"
	PageWallet          = "wallet"
	PagePetition        = "petition"
	PagePetitions       = "petitions"
)

// ChatArgs opens a conversation.
type ChatArgs struct {
	LegalID      string `json:"legalId,omitempty"`
	BareJID      string `json:"bareJid"`
	FriendlyName string `json:"friendlyName"`
}

// PresenceRequestArgs shows an incoming presence subscription request.
type PresenceRequestArgs struct {
	BareJID      string `json:"bareJid"`
	FriendlyName string `json:"friendlyName"`
}

// IdentityArgs shows a legal identity.
type IdentityArgs struct {
	IdentityID string `json:"identityId"`
}

// KycApplicationArgs resumes an identity application that is not yet approved.
type KycApplicationArgs struct {
	ReferenceID string `json:"referenceId"`
	IdentityID  string `json:"identityId,omitempty"`
}

// ContractArgs shows a smart contract.
type ContractArgs struct {
	ContractID string `json:"contractId"`
	Role       string `json:"role,omitempty"`
}

// TokenArgs shows a token held in the wallet.
type TokenArgs struct {
	TokenID string `json:"tokenId"`
}

// WalletArgs opens the wallet, optionally focused on a currency.
type WalletArgs struct {
	Currency string `json:"currency,omitempty"`
}

// PetitionArgs shows a petition awaiting a response.
type PetitionArgs struct {
	PetitionID string `json:"petitionId"`
	From       string `json:"from,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
}
