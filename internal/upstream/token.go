package upstream

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// TokenStatus is a local, signature-free assessment of an auth token based
// on the exp claim of its JWT part. It is a quick expiry check for the
// accounts UI, not a server-side validation.
type TokenStatus struct {
	IsValid   bool       `json:"is_valid"`
	Expired   bool       `json:"expired"`
	ExpiresAt *time.Time `json:"expires_at"`
	Reason    string     `json:"reason,omitempty"`
}

// ParseJWTPayload decodes the payload of the JWT inside an auth token
// ("token <jwt>") without verifying its signature. Returns nil when the
// token does not look like a JWT.
func ParseJWTPayload(authToken string) map[string]any {
	fields := strings.Fields(strings.TrimSpace(authToken))
	if len(fields) == 0 {
		return nil
	}
	parts := strings.Split(fields[len(fields)-1], ".")
	if len(parts) < 2 {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

// TokenExpireAt extracts the exp claim as a UTC time, or nil when absent.
func TokenExpireAt(authToken string) *time.Time {
	payload := ParseJWTPayload(authToken)
	if payload == nil {
		return nil
	}
	exp, ok := payload["exp"].(float64)
	if !ok {
		return nil
	}
	t := time.Unix(int64(exp), 0).UTC()
	return &t
}

// GetTokenStatus classifies a stored token by its exp claim. A token whose
// exp cannot be parsed is treated as unverified rather than invalid.
func GetTokenStatus(authToken string) TokenStatus {
	if strings.TrimSpace(authToken) == "" {
		return TokenStatus{IsValid: false, Expired: true, Reason: "token is empty"}
	}

	expiresAt := TokenExpireAt(authToken)
	if expiresAt == nil {
		return TokenStatus{IsValid: true, Expired: false, Reason: "no exp claim (unverified)"}
	}

	if !time.Now().UTC().Before(*expiresAt) {
		return TokenStatus{IsValid: false, Expired: true, ExpiresAt: expiresAt, Reason: "token expired"}
	}
	return TokenStatus{IsValid: true, Expired: false, ExpiresAt: expiresAt}
}
