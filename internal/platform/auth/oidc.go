package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
)

// ServiceIdentity is the fulfillment partner that called an internal route.
type ServiceIdentity struct {
	Subject string
	Email   string
	Issuer  string
}

type serviceIdentityKey struct{}

func WithServiceIdentity(ctx context.Context, identity *ServiceIdentity) context.Context {
	return context.WithValue(ctx, serviceIdentityKey{}, identity)
}

func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	identity, ok := ctx.Value(serviceIdentityKey{}).(*ServiceIdentity)
	return identity, ok && identity != nil
}

type partnerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// OIDCValidator checks RS256 tokens minted for the fulfillment partner.
type OIDCValidator struct {
	keys   *JWKSCache
	logger *zap.Logger
}

func NewOIDCValidator(keys *JWKSCache, logger *zap.Logger) *OIDCValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OIDCValidator{keys: keys, logger: logger}
}

// RequireOIDC admits requests whose bearer token verifies against the key set, names
// audience and, when issuers is non-empty, comes from one of them. Key set outages
// answer 503 so the partner retries.
func (v *OIDCValidator) RequireOIDC(audience string, issuers []string) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(status int, message string) {
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnauthenticated, message, status))
			}
			if v == nil || v.keys == nil || audience == "" {
				reject(http.StatusServiceUnavailable, "oidc verification unavailable")
				return
			}
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(http.StatusUnauthorized, "oidc token missing")
				return
			}

			var claims partnerClaims
			_, err := parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
				kid, _ := token.Header["kid"].(string)
				if kid == "" {
					return nil, errors.New("auth: token has no kid")
				}
				return v.keys.Key(ctx, kid)
			})
			if errors.Is(err, ErrJWKSFetchFailed) {
				v.logger.Warn("oidc key set unavailable", zap.Error(err))
				reject(http.StatusServiceUnavailable, "oidc verification unavailable")
				return
			}
			if err != nil {
				v.logger.Info("oidc token rejected", zap.Error(err))
				reject(http.StatusUnauthorized, "oidc token verification failed")
				return
			}
			if len(issuers) > 0 && !slices.Contains(issuers, claims.Issuer) {
				reject(http.StatusUnauthorized, "oidc issuer mismatch")
				return
			}
			if !claims.VerifyAudience(audience, true) {
				reject(http.StatusUnauthorized, "oidc audience mismatch")
				return
			}

			identity := &ServiceIdentity{Subject: claims.Subject, Email: claims.Email, Issuer: claims.Issuer}
			next.ServeHTTP(w, r.WithContext(WithServiceIdentity(ctx, identity)))
		})
	}
}
