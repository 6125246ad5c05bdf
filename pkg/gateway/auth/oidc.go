package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OIDCAuthenticator validates dashboard access tokens against the
// configured identity provider's userinfo endpoint.
type OIDCAuthenticator struct {
	config *oauth2.Config
	issuer string
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config: config,
		issuer: issuer,
	}, nil
}

// ValidateToken exchanges the bearer token for the provider's userinfo
// claims. A rejected or expired token surfaces as a non-2xx userinfo
// response.
func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (map[string]interface{}, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.issuer+"/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected by issuer (status %d)", resp.StatusCode)
	}

	var claims map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("invalid userinfo response: %w", err)
	}
	if claims["sub"] == nil {
		return nil, fmt.Errorf("userinfo response missing subject")
	}

	return claims, nil
}

// AuthCodeURL builds the provider login URL for the dashboard's redirect
// flow.
func (a *OIDCAuthenticator) AuthCodeURL(state, redirectURL string) string {
	cfg := *a.config
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}
