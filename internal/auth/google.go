package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/services"

	"google.golang.org/api/idtoken"
)

var ErrNoAudience = errors.New("no google client id configured")

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google ID tokens against every accepted client id
// (web, iOS, Android).
type GoogleVerifier struct {
	audiences []string
	validate  validateFunc
}

var _ services.GoogleVerifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(audiences []string) (*GoogleVerifier, error) {
	var clean []string
	for _, a := range audiences {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoAudience
	}
	return &GoogleVerifier{audiences: clean, validate: idtoken.Validate}, nil
}

// Verify accepts the token if any configured audience validates it.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (services.GoogleIdentity, error) {
	var lastErr error
	for _, aud := range v.audiences {
		payload, err := v.validate(ctx, token, aud)
		if err != nil {
			lastErr = err
			continue
		}
		return identityFromPayload(payload), nil
	}
	return services.GoogleIdentity{}, fmt.Errorf("validate google id token: %w", lastErr)
}

func identityFromPayload(p *idtoken.Payload) services.GoogleIdentity {
	id := services.GoogleIdentity{Subject: p.Subject}
	if email, ok := p.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := p.Claims["name"].(string); ok {
		id.Name = name
	}
	return id
}
