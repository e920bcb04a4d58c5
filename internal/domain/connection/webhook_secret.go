package connection

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
)

// secretBytes is the entropy of a generated webhook secret
const secretBytes = 32

// WebhookSecretManager issues, rotates and verifies per-profile webhook secrets.
// The secret lives in the profile itself; the manager holds no secret state.
type WebhookSecretManager struct {
	random io.Reader
}

// NewWebhookSecretManager creates a manager backed by crypto/rand
func NewWebhookSecretManager() *WebhookSecretManager {
	return &WebhookSecretManager{random: rand.Reader}
}

// NewWebhookSecretManagerWithReader creates a manager with a custom entropy source
func NewWebhookSecretManagerWithReader(r io.Reader) *WebhookSecretManager {
	if r == nil {
		r = rand.Reader
	}
	return &WebhookSecretManager{random: r}
}

// Issue generates the first secret for a profile.
// It fails with AlreadyIssuedError if the profile already holds one.
func (m *WebhookSecretManager) Issue(p *ConnectionProfile) (string, error) {
	secret, err := m.generate()
	if err != nil {
		return "", err
	}
	if !p.webhookSecret.value.CompareAndSwap(nil, &secret) {
		return "", &AlreadyIssuedError{ProfileID: p.ID}
	}
	return secret, nil
}

// Rotate replaces the current secret. The old value stops verifying at the
// instant of the swap.
func (m *WebhookSecretManager) Rotate(p *ConnectionProfile) (string, error) {
	if !p.HasWebhookSecret() {
		return "", ErrWebhookSecretNotIssued
	}
	secret, err := m.generate()
	if err != nil {
		return "", err
	}
	p.webhookSecret.value.Swap(&secret)
	p.AddDomainEvent(NewWebhookSecretRotatedEvent(p))
	return secret, nil
}

// Revoke drops the secret so that no delivery verifies any more
func (m *WebhookSecretManager) Revoke(p *ConnectionProfile) {
	p.webhookSecret.value.Store(nil)
}

// Verify compares a presented secret with the stored one in constant time.
// A missing secret and a wrong secret are indistinguishable to the caller.
func (m *WebhookSecretManager) Verify(p *ConnectionProfile, presented string) bool {
	if p == nil {
		return false
	}
	stored, ok := p.webhookSecret.load()
	// Compare fixed-size digests so the timing is independent of either length.
	want := sha256.Sum256([]byte(stored))
	got := sha256.Sum256([]byte(presented))
	match := subtle.ConstantTimeCompare(want[:], got[:]) == 1
	return ok && match
}

// VerifySignature checks a base64 HMAC-SHA256 signature of the payload, the
// scheme WooCommerce uses for the X-WC-Webhook-Signature header.
func (m *WebhookSecretManager) VerifySignature(p *ConnectionProfile, payload []byte, signature string) bool {
	if p == nil {
		return false
	}
	stored, ok := p.webhookSecret.load()
	expected := SignPayload(stored, payload)
	match := hmac.Equal([]byte(expected), []byte(signature))
	return ok && match
}

func (m *WebhookSecretManager) generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretGenerationFailed, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SignPayload returns the base64 HMAC-SHA256 of payload keyed by secret
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
