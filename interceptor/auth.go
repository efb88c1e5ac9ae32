package interceptor

import (
	"context"
	"encoding/base64"

	"github.com/kbukum/httpkit/client"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthCustom uses a custom authentication function.
	AuthCustom
)

// DefaultAPIKeyName is the header used for API keys when Name is empty.
const DefaultAPIKeyName = "X-API-Key"

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In specifies where to place the API key: "header" (default) or "query".
	In string
	// Name is the header or query parameter name. Defaults to "X-API-Key".
	Name string
	// Apply is a custom request editor (AuthCustom).
	Apply func(ctx context.Context, rb *client.RequestBuilder) error
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: DefaultAPIKeyName}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request editor.
func CustomAuth(fn func(ctx context.Context, rb *client.RequestBuilder) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// Auth returns an interceptor that authenticates every request. A nil
// config or AuthNone leaves requests untouched.
func Auth(cfg *AuthConfig) client.Interceptor {
	return client.InterceptorFuncs{
		BeforeFunc: func(ctx context.Context, rb *client.RequestBuilder) error {
			return cfg.apply(ctx, rb)
		},
	}
}

func (a *AuthConfig) apply(ctx context.Context, rb *client.RequestBuilder) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		rb.SetHeader("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		rb.SetHeader("Authorization", "Basic "+basicCredentials(a.Username, a.Password))
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = DefaultAPIKeyName
		}
		if a.In == "query" {
			setQuery(rb, name, a.Key)
		} else {
			rb.SetHeader(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			return a.Apply(ctx, rb)
		}
	}
	return nil
}

func basicCredentials(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

func setQuery(rb *client.RequestBuilder, name, value string) {
	target := rb.TargetURL()
	if target == nil {
		return
	}
	u := *target
	q := u.Query()
	q.Set(name, value)
	u.RawQuery = q.Encode()
	rb.URL(&u)
}
