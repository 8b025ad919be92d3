package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
)

const (
	roleClaim     = "role"
	verifyTimeout = 5 * time.Second
)

var (
	ErrTokenExpired = errors.New("auth: firebase id token expired")
	ErrTokenInvalid = errors.New("auth: firebase id token invalid")
)

// TokenVerifier checks shopper ID tokens. *firebaseauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// NewFirebaseVerifier returns the Admin SDK auth client for the configured project.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (TokenVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return client, nil
}

// Authenticator guards shopper and staff routes with Firebase ID tokens.
type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// RequireFirebaseAuth verifies the bearer token and stores the Identity on the request.
// With roles given, callers holding none of them get 403.
func (a *Authenticator) RequireFirebaseAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthenticated(ctx, w, "authorization header missing or invalid")
				return
			}
			if a == nil || a.verifier == nil {
				unauthenticated(ctx, w, "authorization service unavailable")
				return
			}

			verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
			token, err := a.verifier.VerifyIDToken(verifyCtx, raw)
			cancel()
			switch {
			case err == nil:
			case errors.Is(err, ErrTokenExpired) || firebaseauth.IsIDTokenExpired(err):
				unauthenticated(ctx, w, "firebase id token expired")
				return
			case errors.Is(err, ErrTokenInvalid) || firebaseauth.IsIDTokenInvalid(err):
				unauthenticated(ctx, w, "firebase id token invalid")
				return
			default:
				unauthenticated(ctx, w, "firebase id token verification failed")
				return
			}

			identity := &Identity{
				UID:   token.UID,
				Email: stringClaim(token.Claims, "email"),
				Name:  stringClaim(token.Claims, "name"),
				Roles: rolesClaim(token.Claims[roleClaim]),
			}
			if len(identity.Roles) == 0 {
				identity.Roles = []string{RoleUser}
			}
			requestctx.Annotate(ctx, "user_id", identity.UID)

			if len(roles) > 0 && !identity.HasAnyRole(roles...) {
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeForbidden, "identity does not have required role", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// rolesClaim accepts "admin", ["staff","admin"] or {"admin":true} shaped claims.
func rolesClaim(raw any) []string {
	var names []string
	switch v := raw.(type) {
	case string:
		names = append(names, v)
	case []string:
		names = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case map[string]any:
		for name, on := range v {
			if enabled, _ := on.(bool); enabled {
				names = append(names, name)
			}
		}
	}

	var out []string
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthenticated(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnauthenticated, message, http.StatusUnauthorized))
}
