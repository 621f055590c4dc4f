package model

// Priority levels for a recommendation.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Proposal is an assistant-proposed card suggestion before resolution.
// The name is free text and may not match any indexed card.
type Proposal struct {
	CardName string `json:"card_name"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
	Quantity int    `json:"quantity"`
}

// Recommendation is a resolved, validated card suggestion. CardID,
// CardName and Image come from the index, never from the proposal text.
type Recommendation struct {
	CardID   string `json:"cardId"`
	CardName string `json:"cardName"`
	Image    string `json:"image,omitempty"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
	Quantity int    `json:"quantity"`
}
