// Package tools exposes the retrieval service and the recommendation
// resolver as MCP tools for the conversational assistant.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Register wires all four card tools onto the MCP server.
func Register(server *mcpserver.MCPServer, handlers *Handlers) {
	server.AddTool(mcp.Tool{
		Name:        "search_cards",
		Description: "Search for cards in the vector database. Use this to find cards with specific attributes, types, attacks, or other characteristics. Only search for cards that exist in the mobile game - do not make up card names.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"maxLength":   200,
					"description": "The search query (e.g., 'Fire type cards', 'cards with high HP', 'cards that deal 100 damage')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     10,
					"default":     5,
					"description": "Maximum number of results to return (default: 5)",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation session identifier, used for rate limiting",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchCards)

	server.AddTool(mcp.Tool{
		Name:        "get_similar_cards",
		Description: "Find cards similar to a specific card. Use this to recommend alternatives or complementary cards for deck building.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card_name": map[string]interface{}{
					"type":        "string",
					"minLength":   1,
					"maxLength":   200,
					"description": "The name of the card to find similar cards for",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     10,
					"default":     5,
					"description": "Maximum number of similar cards to return (default: 5)",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation session identifier, used for rate limiting",
				},
			},
			Required: []string{"card_name"},
		},
	}, handlers.GetSimilarCards)

	server.AddTool(mcp.Tool{
		Name:        "get_card_context",
		Description: "Look up detailed card information by name to ground the conversation. Returns one paragraph per requested card.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card_names": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Names of the cards to look up",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation session identifier, used for rate limiting",
				},
			},
			Required: []string{"card_names"},
		},
	}, handlers.GetCardContext)

	server.AddTool(mcp.Tool{
		Name:        "recommend_cards",
		Description: "Provide structured card recommendations for deck building. These are SUGGESTIONS the user can choose to add - cards are NOT automatically added. Every recommendation is validated against the card database.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation session identifier; repeat recommendations within one session are dropped",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Why these cards are being recommended (e.g., 'synergy with Charizard', 'energy acceleration')",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Brief strategy advice about how to use these cards",
				},
				"recommendations": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"card_name": map[string]interface{}{
								"type":        "string",
								"description": "The name of the card",
							},
							"reason": map[string]interface{}{
								"type":        "string",
								"description": "Why this specific card is recommended",
							},
							"priority": map[string]interface{}{
								"type":        "string",
								"enum":        []string{"high", "medium", "low"},
								"description": "How important this recommendation is",
							},
							"quantity": map[string]interface{}{
								"type":        "integer",
								"description": "How many copies of this card to add to the deck",
							},
						},
						"required": []string{"card_name", "reason", "priority", "quantity"},
					},
					"description": "Array of proposed card recommendations",
				},
			},
			Required: []string{"session_id", "reason", "recommendations"},
		},
	}, handlers.RecommendCards)
}
