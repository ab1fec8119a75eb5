package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"silent-auction/internal/domain"
)

// HTTPProvider resolves bidder tokens against the external identity service
// that owns alias registration and email verification.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type aliasResponse struct {
	AliasID     string `json:"alias_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Verified    bool   `json:"verified"`
}

func (p *HTTPProvider) ResolveVerifiedAlias(ctx context.Context, token string) (*domain.Alias, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/alias", nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrNoVerifiedAlias
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var body aliasResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	if !body.Verified {
		return nil, domain.ErrNoVerifiedAlias
	}

	return &domain.Alias{
		ID:          body.AliasID,
		DisplayName: body.DisplayName,
		Email:       body.Email,
	}, nil
}
