package handlers

import (
	"encoding/json"
	"strings"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/messages"
)

func init() {
	Register(TopicXmppEvents, "CHAT_MESSAGE", handleChatMessage)
	Register(TopicXmppEvents, "PRESENCE_SUBSCRIBE", handlePresenceSubscribe)
	Register(TopicXmppEvents, "IDENTITY_UPDATED", handleIdentityUpdated)
	Register(TopicXmppEvents, "CONTRACT_PROPOSAL", handleContractProposal)
	Register(TopicXmppEvents, "CONTRACT_SIGNED", handleContractSigned)
	Register(TopicXmppEvents, "CONTRACT_UPDATED", handleContractUpdated)
	Register(TopicXmppEvents, "CONTRACT_DELETED", handleContractDeleted)
	Register(TopicXmppEvents, "PETITION_IDENTITY", handlePetition)
	Register(TopicXmppEvents, "PETITION_CONTRACT", handlePetition)
	Register(TopicXmppEvents, "PETITION_SIGNATURE", handlePetition)
	Register(TopicXmppEvents, "BALANCE_UPDATED", handleBalanceUpdated)
	Register(TopicXmppEvents, "TOKEN_ADDED", handleTokenAdded)
	Register(TopicXmppEvents, "TOKEN_REMOVED", handleTokenRemoved)
}

// xmppEnv is the envelope the XMPP bridge publishes for every stanza it forwards.
type xmppEnv struct {
	EventType     string `json:"eventType"`
	EventID       string `json:"eventId"`
	CorrelationID string `json:"correlationId"`
	Silent        bool   `json:"silent"`
	Payload       struct {
		From         string `json:"from"`
		FriendlyName string `json:"friendlyName"`
		Body         string `json:"body"`
		IdentityID   string `json:"identityId"`
		State        string `json:"state"`
		ContractID   string `json:"contractId"`
		LegalID      string `json:"legalId"`
		Role         string `json:"role"`
		Message      string `json:"message"`
		PetitionID   string `json:"petitionId"`
		Purpose      string `json:"purpose"`
		Amount       string `json:"amount"`
		Currency     string `json:"currency"`
		TokenID      string `json:"tokenId"`
	} `json:"payload"`
}

func parseXmppEnv(data []byte) (*xmppEnv, bool) {
	var env xmppEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	return &env, true
}

// inbound assembles the result shared by every XMPP translation.
func (env *xmppEnv) inbound(data []byte, channel string, action domain.Action, entityID, title, body string, extras map[string]string) *domain.Inbound {
	if extras == nil {
		extras = map[string]string{}
	}
	if env.EventID != "" {
		extras["eventId"] = env.EventID
	}
	presentation := domain.PresentationRenderAndStore
	if env.Silent {
		presentation = domain.PresentationStoreOnly
	}
	return &domain.Inbound{
		Intent: domain.Intent{
			Title:         title,
			Body:          body,
			Action:        action,
			EntityID:      entityID,
			Channel:       channel,
			Extras:        extras,
			Version:       domain.DefaultSchemaVersion,
			CorrelationID: env.CorrelationID,
			Presentation:  presentation,
		},
		Source:     domain.SourceXmpp,
		RawPayload: string(data),
	}
}

// bareJID strips the resource part, so messages from any of a contact's devices group together.
func bareJID(jid string) string {
	if i := strings.IndexByte(jid, '/'); i >= 0 {
		return jid[:i]
	}
	return jid
}

func handleChatMessage(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.From == "" {
		return nil
	}
	from := bareJID(env.Payload.From)
	title, body := messages.ChatMessage(env.Payload.FriendlyName, from, env.Payload.Body)
	return env.inbound(data, domain.ChannelChat, domain.ActionOpenChat, from, title, body, nil)
}

func handlePresenceSubscribe(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.From == "" {
		return nil
	}
	from := bareJID(env.Payload.From)
	title, body := messages.PresenceRequest(env.Payload.FriendlyName, from)
	return env.inbound(data, domain.ChannelPresence, domain.ActionOpenPresenceRequest, from, title, body, nil)
}

func handleIdentityUpdated(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.IdentityID == "" {
		return nil
	}
	title, body := messages.IdentityUpdated(env.Payload.State)
	return env.inbound(data, domain.ChannelIdentities, domain.ActionOpenIdentity, env.Payload.IdentityID, title, body,
		map[string]string{"state": env.Payload.State})
}

func handleContractProposal(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.ContractID == "" {
		return nil
	}
	title, body := messages.ContractProposed(env.Payload.Message)
	return env.inbound(data, domain.ChannelContracts, domain.ActionOpenContract, env.Payload.ContractID, title, body,
		map[string]string{"role": env.Payload.Role})
}

func handleContractSigned(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.ContractID == "" {
		return nil
	}
	title, body := messages.ContractSigned(env.Payload.ContractID, env.Payload.LegalID)
	return env.inbound(data, domain.ChannelContracts, domain.ActionOpenContract, env.Payload.ContractID, title, body,
		map[string]string{"legalId": env.Payload.LegalID})
}

func handleContractUpdated(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.ContractID == "" {
		return nil
	}
	title, body := messages.ContractUpdated()
	return env.inbound(data, domain.ChannelContracts, domain.ActionOpenContract, env.Payload.ContractID, title, body, nil)
}

func handleContractDeleted(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.ContractID == "" {
		return nil
	}
	title, body := messages.ContractDeleted()
	// The contract is gone; consuming the notification opens the contract list instead.
	return env.inbound(data, domain.ChannelContracts, domain.ActionOpenContract, "", title, body,
		map[string]string{"contractId": env.Payload.ContractID})
}

func handlePetition(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.PetitionID == "" {
		return nil
	}
	from := bareJID(env.Payload.From)
	title, body := messages.Petition(env.Payload.FriendlyName, from, env.Payload.Purpose)
	return env.inbound(data, domain.ChannelPetitions, domain.ActionOpenPetition, env.Payload.PetitionID, title, body,
		map[string]string{"from": from, "kind": strings.ToLower(strings.TrimPrefix(env.EventType, "PETITION_"))})
}

func handleBalanceUpdated(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok {
		return nil
	}
	title, body := messages.BalanceUpdated(env.Payload.Amount, env.Payload.Currency)
	return env.inbound(data, domain.ChannelWallet, domain.ActionOpenBalance, "", title, body,
		map[string]string{"amount": env.Payload.Amount, "currency": env.Payload.Currency})
}

func handleTokenAdded(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.TokenID == "" {
		return nil
	}
	title, body := messages.TokenAdded(env.Payload.FriendlyName)
	return env.inbound(data, domain.ChannelTokens, domain.ActionOpenToken, env.Payload.TokenID, title, body, nil)
}

func handleTokenRemoved(data []byte) *domain.Inbound {
	env, ok := parseXmppEnv(data)
	if !ok || env.Payload.TokenID == "" {
		return nil
	}
	title, body := messages.TokenRemoved(env.Payload.FriendlyName)
	// A removed token cannot be opened; route to the token list.
	return env.inbound(data, domain.ChannelTokens, domain.ActionOpenToken, "", title, body,
		map[string]string{"tokenId": env.Payload.TokenID})
}
