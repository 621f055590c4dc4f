package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
	"github.com/profoak/profoak-api/internal/infrastructure/resilience"
	"github.com/profoak/profoak-api/internal/usecase/query"
)

// anonymousClient is the rate-limit bucket for calls without a session.
const anonymousClient = "anonymous"

// Handlers holds the tool implementations. Session-scoped
// already-recommended sets live here, keyed by session id; one session
// is owned by one conversation and never shared across sessions.
type Handlers struct {
	retriever *query.Retriever
	resolver  *query.Resolver
	limiter   *resilience.RateLimiter

	mu       sync.Mutex
	sessions map[string]map[string]struct{}
}

// NewHandlers builds the tool handler set. limiter may be nil to
// disable per-session rate limiting.
func NewHandlers(retriever *query.Retriever, resolver *query.Resolver, limiter *resilience.RateLimiter) *Handlers {
	return &Handlers{
		retriever: retriever,
		resolver:  resolver,
		limiter:   limiter,
		sessions:  make(map[string]map[string]struct{}),
	}
}

// session returns the at-most-once recommendation set for a session id,
// creating it on first use.
func (h *Handlers) session(sessionID string) map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[string]struct{})
		h.sessions[sessionID] = set
	}
	return set
}

// allow checks the per-session budget for one tool route.
func (h *Handlers) allow(sessionID, route string) bool {
	if h.limiter == nil {
		return true
	}
	if sessionID == "" {
		sessionID = anonymousClient
	}
	decision := h.limiter.Allow(resilience.Key{Client: sessionID, Route: route})
	if !decision.Allowed {
		log.Printf("[Tools] Rate limit exceeded for session %s on %s", sessionID, route)
	}
	return decision.Allowed
}

// SearchCards handles the search_cards tool.
func (h *Handlers) SearchCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawQuery, err := request.RequireString("query")
	if err != nil {
		return failure("query argument is required and must be a string", "Please provide a search term."), nil
	}
	limit := request.GetInt("limit", 5)

	if !h.allow(request.GetString("session_id", ""), "search_cards") {
		return rateLimited(), nil
	}

	sanitized := query.SanitizeQuery(rawQuery)
	views, err := h.retriever.SearchCards(ctx, rawQuery, limit)
	if err != nil {
		if faults.IsValidation(err) {
			return failure("invalid search query format", "Please provide a valid search term."), nil
		}
		log.Printf("[Tools] search_cards failed: %v", err)
		return failure(
			fmt.Sprintf("failed to search cards in vector database: %v", err),
			"I'm having trouble searching the card database. Please try a different search term or try again later.",
		), nil
	}

	return success(map[string]any{
		"query":   sanitized,
		"results": views,
	}), nil
}

// GetSimilarCards handles the get_similar_cards tool.
func (h *Handlers) GetSimilarCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardName, err := request.RequireString("card_name")
	if err != nil {
		return failure("card_name argument is required and must be a string", "Please provide a card name."), nil
	}
	limit := request.GetInt("limit", 5)

	if !h.allow(request.GetString("session_id", ""), "get_similar_cards") {
		return rateLimited(), nil
	}

	views, err := h.retriever.GetSimilarCards(ctx, cardName, limit)
	if err != nil {
		if faults.IsValidation(err) {
			return failure("invalid card name format", "Please provide a valid card name."), nil
		}
		log.Printf("[Tools] get_similar_cards failed: %v", err)
		return failure(
			fmt.Sprintf("failed to find similar cards: %v", err),
			"I'm having trouble searching the card database. Please try again later.",
		), nil
	}
	if views == nil {
		views = []model.CardView{}
	}

	return success(map[string]any{
		"cardName":     query.SanitizeQuery(cardName),
		"similarCards": views,
	}), nil
}

// GetCardContext handles the get_card_context tool.
func (h *Handlers) GetCardContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		CardNames []string `json:"card_names"`
		SessionID string   `json:"session_id"`
	}
	if err := request.BindArguments(&args); err != nil {
		return failure("card_names argument is required and must be an array of strings", "Please provide card names to look up."), nil
	}

	if !h.allow(args.SessionID, "get_card_context") {
		return rateLimited(), nil
	}

	contextText, err := h.retriever.GetCardContext(ctx, args.CardNames)
	if err != nil {
		log.Printf("[Tools] get_card_context failed: %v", err)
		return failure(
			fmt.Sprintf("failed to fetch card context: %v", err),
			"I'm having trouble looking up card details right now. Please try again in a moment.",
		), nil
	}

	return success(map[string]any{
		"context": contextText,
	}), nil
}

// RecommendCards handles the recommend_cards tool. Proposals that do
// not resolve to a real indexed card are dropped and surfaced through
// the warnings field, never guessed at.
func (h *Handlers) RecommendCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		SessionID       string           `json:"session_id"`
		Reason          string           `json:"reason"`
		Strategy        string           `json:"strategy"`
		Recommendations []model.Proposal `json:"recommendations"`
	}
	if err := request.BindArguments(&args); err != nil {
		return failure("recommendations argument is malformed", "Please provide structured card recommendations."), nil
	}
	if args.SessionID == "" {
		return failure("session_id argument is required", "Please provide a session identifier."), nil
	}

	if !h.allow(args.SessionID, "recommend_cards") {
		return rateLimited(), nil
	}

	validated, dropped, err := h.resolver.Resolve(ctx, args.Recommendations, h.session(args.SessionID))
	if err != nil {
		log.Printf("[Tools] recommend_cards failed: %v", err)
		return failure(
			fmt.Sprintf("failed to validate card recommendations: %v", err),
			"I apologize, but I'm having trouble accessing the card database right now. Please try again in a moment.",
		), nil
	}

	strategy := args.Strategy
	if strategy == "" {
		strategy = "These cards work well together in your deck strategy."
	}

	payload := map[string]any{
		"reason":           args.Reason,
		"recommendations":  validated,
		"strategy":         strategy,
		"totalRecommended": len(validated),
	}
	if dropped > 0 {
		payload["warnings"] = fmt.Sprintf("Note: %d cards were not found in the database and may not be available.", dropped)
	}
	return success(payload), nil
}

// success wraps a tool result as a {success: true, ...} JSON text.
func success(fields map[string]any) *mcp.CallToolResult {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return jsonResult(body)
}

// failure wraps a tool error as a {success: false, error, fallback}
// JSON text. Provider failures become structured results, never
// protocol errors.
func failure(errText, fallback string) *mcp.CallToolResult {
	return jsonResult(map[string]any{
		"success":  false,
		"error":    errText,
		"fallback": fallback,
	})
}

func rateLimited() *mcp.CallToolResult {
	return failure("rate limit exceeded for this session", "You're sending requests a little too quickly. Please wait a moment and try again.")
}

func jsonResult(body map[string]any) *mcp.CallToolResult {
	data, err := json.Marshal(body)
	if err != nil {
		return mcp.NewToolResultText(`{"success":false,"error":"failed to encode tool result"}`)
	}
	return mcp.NewToolResultText(string(data))
}
