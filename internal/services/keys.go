package services

import (
	"context"
	"fmt"
	"strings"

	"indexpilot/internal/sitemap"

	"github.com/google/uuid"
)

// KeyService handles IndexNow key generation and proof-of-control checks.
type KeyService struct {
	fetcher *sitemap.Fetcher
}

func NewKeyService(fetcher *sitemap.Fetcher) *KeyService {
	return &KeyService{fetcher: fetcher}
}

// GenerateKey returns a fresh IndexNow key. IndexNow accepts 8-128
// hexadecimal characters; a dashless UUID fits.
func GenerateKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateAPIKey returns a bearer token for programmatic API access.
func GenerateAPIKey() string {
	return "ip_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// VerifyKeyFile checks that https://{domain}/{key}.txt serves exactly the
// key, proving the submitter controls the domain.
func (s *KeyService) VerifyKeyFile(ctx context.Context, domain, key string) (bool, string, error) {
	keyURL := fmt.Sprintf("https://%s/%s.txt", domain, key)

	body, ferr := s.fetcher.Fetch(ctx, keyURL)
	if ferr != nil {
		return false, "Key file not reachable at " + keyURL, nil
	}

	if strings.TrimSpace(body) != key {
		return false, fmt.Sprintf("Key file found but content does not match (Found: %s, Expected: %s)", strings.TrimSpace(body), key), nil
	}

	return true, "IndexNow key verified successfully!", nil
}
