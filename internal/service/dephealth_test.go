// dephealth_test.go — unit-тесты конфигурации мониторинга зависимостей.
package service

import (
	"testing"
)

// TestJWKSHealthPath проверяет выбор path для HTTP-проверки JWKS.
func TestJWKSHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Keycloak realm certs",
			input:    "https://idp.example.com/realms/civicwatch/protocol/openid-connect/certs",
			expected: "/realms/civicwatch/protocol/openid-connect/certs",
		},
		{
			name:     "well-known jwks",
			input:    "https://auth.example.com/.well-known/jwks.json",
			expected: "/.well-known/jwks.json",
		},
		{
			name:     "URL без path — /health",
			input:    "https://idp.example.com",
			expected: "/health",
		},
		{
			name:     "некорректный URL — /health",
			input:    "://bad",
			expected: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jwksHealthPath(tt.input); got != tt.expected {
				t.Errorf("jwksHealthPath(%q) = %q, ожидалось %q", tt.input, got, tt.expected)
			}
		})
	}
}
