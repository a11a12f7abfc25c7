package handlers

import (
	"encoding/json"

	"vn.io.arda/notification-pipeline/internal/domain"
)

func init() {
	RegisterDirect(TopicLocalIntents, handleLocalIntent)
}

// handleLocalIntent accepts an intent published by the host application itself.
func handleLocalIntent(data []byte) *domain.Inbound {
	var in domain.Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil
	}
	if in.Title == "" && in.Body == "" {
		return nil
	}

	in.Action = domain.ParseAction(string(in.Action))
	if in.Channel == "" {
		in.Channel = domain.ChannelSystem
	}

	return &domain.Inbound{
		Intent:     in,
		Source:     domain.SourceLocal,
		RawPayload: string(data),
	}
}
