// Package projector renders a card into the canonical natural-language
// description used both for embedding and as the retrievable content.
package projector

import (
	"fmt"
	"strings"

	"github.com/profoak/profoak-api/internal/domain/model"
)

// Project converts a card into its searchable text. Pure function: the
// same card always yields identical text. Clause order is part of the
// contract — it determines what the embedding model weights most, so
// near-identical cards must produce near-identical projections.
func Project(card *model.Card) string {
	var parts []string

	if card.Category == model.CategoryTrainer {
		subtype := card.TrainerType
		if subtype == "" {
			subtype = "Trainer"
		}
		parts = append(parts, fmt.Sprintf("%s is a %s card", card.Name, subtype))

		if card.Effect != "" {
			parts = append(parts, "Effect: "+card.Effect)
		}
		if card.Description != "" {
			parts = append(parts, "Description: "+card.Description)
		}
	} else {
		typeLine := "Pokémon"
		if len(card.Types) > 0 {
			typeLine = strings.Join(card.Types, "/")
		}
		parts = append(parts, fmt.Sprintf("%s is a %s card", card.Name, typeLine))

		if card.Stage != "" {
			parts = append(parts, fmt.Sprintf("(%s stage)", card.Stage))
		}
		if card.HP > 0 {
			parts = append(parts, fmt.Sprintf("with %d HP", card.HP))
		}
		if card.Description != "" {
			parts = append(parts, ". "+card.Description)
		}
		if card.EvolveFrom != "" {
			parts = append(parts, "It evolves from "+card.EvolveFrom)
		}
		if len(card.Attacks) > 0 {
			descs := make([]string, 0, len(card.Attacks))
			for _, attack := range card.Attacks {
				descs = append(descs, renderAttack(attack))
			}
			parts = append(parts, "Its attacks include "+strings.Join(descs, " and "))
		}
		if len(card.Abilities) > 0 {
			descs := make([]string, 0, len(card.Abilities))
			for _, ability := range card.Abilities {
				descs = append(descs, ability.Name+": "+ability.Description)
			}
			parts = append(parts, "It has the abilities "+strings.Join(descs, " and "))
		}
		if len(card.Weaknesses) > 0 {
			descs := make([]string, 0, len(card.Weaknesses))
			for _, w := range card.Weaknesses {
				descs = append(descs, fmt.Sprintf("%s +%s", w.Type, w.Value))
			}
			parts = append(parts, "It is weak to "+strings.Join(descs, ", "))
		}
		if card.Retreat > 0 {
			parts = append(parts, fmt.Sprintf("It has a retreat cost of %d", card.Retreat))
		}
	}

	if card.SetName != "" {
		parts = append(parts, fmt.Sprintf("This card is from the %s set", card.SetName))
	}

	if card.Variants != nil {
		var variants []string
		if card.Variants.Holo {
			variants = append(variants, "holo")
		}
		if card.Variants.Normal {
			variants = append(variants, "normal")
		}
		if card.Variants.Reverse {
			variants = append(variants, "reverse holo")
		}
		if card.Variants.FirstEdition {
			variants = append(variants, "first edition")
		}
		if len(variants) > 0 {
			parts = append(parts, "Available in "+strings.Join(variants, ", ")+" variants")
		}
	}

	return strings.Join(parts, ". ")
}

func renderAttack(attack model.Attack) string {
	desc := attack.Name
	if len(attack.Cost) > 0 {
		desc += fmt.Sprintf(" (costs %s)", strings.Join(attack.Cost, ", "))
	}
	if attack.Damage != "" {
		desc += fmt.Sprintf(" deals %s damage", attack.Damage)
	}
	if attack.Description != "" {
		desc += " - " + attack.Description
	}
	return desc
}
