package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

var (
	contextTokenKey   = "accountToken"
	contextAccountKey = "account"
	tokenCookieName   = "shule_token"
	audience          = "Academia"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string       `json:"username,omitempty"`
	Email    string       `json:"email,omitempty"`
	Role     account.Role `json:"role,omitempty"`
}

// GetAccountClaims returns fresh claims for acc. Each set of claims carries its own token ID,
// so that logging out revokes one token only.
func GetAccountClaims(acc account.Account, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   acc.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: acc.Username,
		Email:    acc.Email,
		Role:     acc.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// parseToken validates a raw token the same way the JWT middleware does.
func parseToken(raw, secretKey string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(raw, new(Claims), func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}
	return token, nil
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if l := len(middleware.DefaultJWTConfig.AuthScheme); len(auth) > l+1 && strings.EqualFold(auth[:l], middleware.DefaultJWTConfig.AuthScheme) {
		return auth[l+1:]
	}
	return ""
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextAccount loads the authenticated account once per request.
func getContextAccount(ctx echo.Context, svc account.Service) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Account{}, err
	}
	acc, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

func getContextStudent(ctx echo.Context, svc account.Service) (account.StudentProfile, error) {
	acc, err := getContextAccount(ctx, svc)
	if err != nil {
		return account.StudentProfile{}, err
	}
	if !acc.IsStudent() {
		return account.StudentProfile{}, errHttpForbidden
	}
	student, err := svc.GetStudent(ctx.Request().Context(), account.StudentFilter{AccountID: acc.ID})
	if err != nil {
		return account.StudentProfile{}, errors.Wrap(err, "getting student profile")
	}
	return student, nil
}

// revocationMiddleware rejects tokens that were logged out.
func revocationMiddleware(sessions core.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			revoked, err := sessions.IsRevoked(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking token revocation")
			}
			if revoked {
				return errTokenRevoked
			}
			return next(ctx)
		}
	}
}

func roleMiddleware(roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// revokeToken logs a token out until its expiry. Invalid or expired tokens need no revocation.
// Logging out never fails: a session store failure is reported and the caller carries on.
func revokeToken(ctx echo.Context, sessions core.SessionStore, logger core.Logger, raw, secretKey string) {
	if raw == "" {
		return
	}
	token, err := parseToken(raw, secretKey)
	if err != nil {
		return
	}
	claims := token.Claims.(*Claims)
	if claims.Id == "" {
		return
	}
	if err = sessions.Revoke(ctx.Request().Context(), claims.Id, time.Unix(claims.ExpiresAt, 0)); err != nil {
		logger.Error("revoking token: "+err.Error(), errors.Wrap(err, "revoking token"), map[string]interface{}{"jti": claims.Id})
	}
}

func newTokenCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
