package model

// CardView is the typed projection of a match payload returned to the
// tool layer. JSON-encoded list fields are parsed back into structured
// slices; a field that fails to parse is nil, never an error.
type CardView struct {
	CardID      string     `json:"cardId"`
	CardName    string     `json:"cardName"`
	Image       string     `json:"image,omitempty"`
	CardType    string     `json:"cardType,omitempty"`
	HP          int        `json:"hp,omitempty"`
	Stage       string     `json:"stage,omitempty"`
	SetName     string     `json:"setName,omitempty"`
	Description string     `json:"description,omitempty"`
	Attacks     []Attack   `json:"attacks,omitempty"`
	Abilities   []Ability  `json:"abilities,omitempty"`
	Weaknesses  []Weakness `json:"weaknesses,omitempty"`
	EvolveFrom  string     `json:"evolveFrom,omitempty"`
	Retreat     int        `json:"retreat,omitempty"`
	Content     string     `json:"content"`
	Score       float32    `json:"score"`
}
