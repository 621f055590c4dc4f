package model

// Card category values as returned by the TCGdex catalog.
const (
	CategoryPokemon = "Pokemon"
	CategoryTrainer = "Trainer"
)

// Attack is a single attack printed on a Pokémon card.
type Attack struct {
	Name        string   `json:"name"`
	Damage      string   `json:"damage,omitempty"`
	Cost        []string `json:"cost,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Ability is a passive ability printed on a Pokémon card.
type Ability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Weakness pairs an energy type with its damage modifier (e.g. "+20").
type Weakness struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Variants records which print variants a card is available in.
type Variants struct {
	Holo         bool `json:"holo,omitempty"`
	Normal       bool `json:"normal,omitempty"`
	Reverse      bool `json:"reverse,omitempty"`
	FirstEdition bool `json:"firstEdition,omitempty"`
}

// Card is an immutable snapshot of one catalog entry at sync time.
// Field names follow the TCGdex wire schema; optional fields decode to
// their zero value when absent.
type Card struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Image       string     `json:"image,omitempty"`
	Category    string     `json:"category,omitempty"`
	Types       []string   `json:"types,omitempty"`
	HP          int        `json:"hp,omitempty"`
	Description string     `json:"description,omitempty"`
	Stage       string     `json:"stage,omitempty"`
	SetID       string     `json:"-"`
	SetName     string     `json:"-"`
	Attacks     []Attack   `json:"attacks,omitempty"`
	Abilities   []Ability  `json:"abilities,omitempty"`
	Weaknesses  []Weakness `json:"weaknesses,omitempty"`
	EvolveFrom  string     `json:"evolveFrom,omitempty"`
	Retreat     int        `json:"retreat,omitempty"`
	TrainerType string     `json:"trainerType,omitempty"`
	Effect      string     `json:"effect,omitempty"`
	Variants    *Variants  `json:"variants,omitempty"`
}

// SetInfo is one entry of the catalog's set listing.
type SetInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount struct {
		Official int `json:"official"`
		Total    int `json:"total"`
	} `json:"cardCount"`
}

// CardBrief is the abbreviated card reference inside a set detail response.
type CardBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SetDetail is the full set response, including its card list.
type SetDetail struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Cards []CardBrief `json:"cards"`
}
