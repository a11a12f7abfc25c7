package domain

// Action is what consuming a notification should do in the host application.
// The set is open: new members may be added, unknown strings parse to ActionUnknown.
type Action string

const (
	ActionUnknown             Action = "Unknown"
	ActionOpenChat            Action = "OpenChat"
	ActionOpenProfile         Action = "OpenProfile"
	ActionOpenIdentity        Action = "OpenIdentity"
	ActionOpenPresenceRequest Action = "OpenPresenceRequest"
	ActionOpenSettings        Action = "OpenSettings"
	ActionOpenContract        Action = "OpenContract"
	ActionOpenToken           Action = "OpenToken"
	ActionOpenBalance         Action = "OpenBalance"
	ActionOpenPetition        Action = "OpenPetition"
)

var knownActions = map[Action]struct{}{
	ActionUnknown:             {},
	ActionOpenChat:            {},
	ActionOpenProfile:         {},
	ActionOpenIdentity:        {},
	ActionOpenPresenceRequest: {},
	ActionOpenSettings:        {},
	ActionOpenContract:        {},
	ActionOpenToken:           {},
	ActionOpenBalance:         {},
	ActionOpenPetition:        {},
}

// ParseAction maps a stored or transmitted action name back to an Action.
func ParseAction(s string) Action {
	a := Action(s)
	if _, ok := knownActions[a]; ok {
		return a
	}
	return ActionUnknown
}

// Source tags where a notification came from.
type Source string

const (
	SourceXmpp  Source = "Xmpp"
	SourcePush  Source = "Push"
	SourceLocal Source = "Local"
)

// Presentation controls whether a notification is rendered, stored, both or neither.
type Presentation string

const (
	PresentationRenderAndStore Presentation = "RenderAndStore"
	PresentationStoreOnly      Presentation = "StoreOnly"
	PresentationRenderOnly     Presentation = "RenderOnly"
	PresentationTransient      Presentation = "Transient"
)

// Stores reports whether the presentation asks for persistence.
func (p Presentation) Stores() bool {
	return p == PresentationRenderAndStore || p == PresentationStoreOnly || p == ""
}

// Renders reports whether the presentation asks for rendering.
func (p Presentation) Renders() bool {
	return p == PresentationRenderAndStore || p == PresentationRenderOnly || p == ""
}

// Well-known channels used by the ingestion handlers.
const (
	ChannelChat       = "Chat"
	ChannelPresence   = "Presence"
	ChannelIdentities = "Identities"
	ChannelContracts  = "Contracts"
	ChannelPetitions  = "Petitions"
	ChannelWallet     = "Wallet"
	ChannelTokens     = "Tokens"
	ChannelSystem     = "System"
)

// DefaultSchemaVersion is applied when an intent carries no version.
const DefaultSchemaVersion = 1

// Intent is an ephemeral description of something that happened and may become a
// notification. It has no identity of its own; see IDResolver.
type Intent struct {
	Title         string            `json:"title"`
	Body          string            `json:"body,omitempty"`
	Action        Action            `json:"action"`
	EntityID      string            `json:"entityId,omitempty"`
	Channel       string            `json:"channel,omitempty"`
	DeepLink      string            `json:"deepLink,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
	Version       int               `json:"version"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Presentation  Presentation      `json:"presentation,omitempty"`
}

// Inbound is an intent together with its provenance, as produced by ingestion handlers.
type Inbound struct {
	Intent     Intent
	Source     Source
	RawPayload string
}
