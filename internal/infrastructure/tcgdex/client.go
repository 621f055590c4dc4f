// Package tcgdex implements the repository.CardSource port against the
// TCGdex card-catalog API.
package tcgdex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
	"github.com/profoak/profoak-api/internal/domain/repository"
)

// Compile-time interface check
var _ repository.CardSource = (*Client)(nil)

const userAgent = "prof-oak-app/1.0"

// Client is a thin read-only TCGdex API client.
type Client struct {
	baseURL string
	lang    string
	client  *http.Client
}

// NewClient creates a TCGdex client for the given base URL and language.
func NewClient(baseURL, lang, logLevel string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		lang:    lang,
		client: &http.Client{
			Transport: &LoggingTransport{LogLevel: logLevel},
			Timeout:   30 * time.Second,
		},
	}
}

// ListSets returns the full current set listing.
func (c *Client) ListSets(ctx context.Context) ([]model.SetInfo, error) {
	var sets []model.SetInfo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/sets", c.baseURL, c.lang), &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// GetSet returns a set with its abbreviated card list.
func (c *Client) GetSet(ctx context.Context, setID string) (*model.SetDetail, error) {
	var detail model.SetDetail
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/sets/%s", c.baseURL, c.lang, setID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// cardDetail decodes the set reference nested in a card response.
type cardDetail struct {
	model.Card
	Set struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"set"`
}

// GetCard returns full card detail, or faults.ErrNotFound.
func (c *Client) GetCard(ctx context.Context, cardID string) (*model.Card, error) {
	var detail cardDetail
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/cards/%s", c.baseURL, c.lang, cardID), &detail); err != nil {
		return nil, err
	}

	card := detail.Card
	card.SetID = detail.Set.ID
	card.SetName = detail.Set.Name
	return &card, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return faults.Transientf("tcgdex fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, faults.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return faults.Transientf("tcgdex fetch", fmt.Errorf("%s returned status %d", url, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
