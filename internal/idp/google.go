// Package idp verifies external identity assertions. The rest of the
// system only ever sees a verified assertion; nothing downstream checks
// tokens itself.
package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/service"
)

var ErrInvalidToken = errors.New("idp: invalid token")

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google ID tokens against the tokeninfo
// endpoint and checks the audience.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
	endpoint string
}

// NewGoogleVerifier creates a verifier for the given OAuth client ID
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: tokenInfoURL,
	}
}

type tokenInfo struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Subject       string `json:"sub"`
	Audience      string `json:"aud"`
}

// Verify checks the ID token and returns the verified assertion.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*service.Assertion, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	u := v.endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("tokeninfo decode failed: %w", err)
	}

	if info.Audience != v.clientID || info.Email == "" || info.EmailVerified != "true" {
		return nil, ErrInvalidToken
	}

	return &service.Assertion{
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
		SubjectID: info.Subject,
	}, nil
}
