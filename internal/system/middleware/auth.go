package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/leadflow/consent-service/internal/system/constants"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// Claims are the staff token claims issued by the CRM.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier parses staff bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier for HS256 tokens signed with secret.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Parse validates tokenString and returns the actor it names.
func (v *TokenVerifier) Parse(tokenString string) (*security.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	return &security.Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   security.Role(strings.ToUpper(claims.Role)),
	}, nil
}

// OptionalAuth attaches an actor when a valid bearer token is present. Anonymous requests pass through;
// a present but invalid token is rejected.
func OptionalAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.AuthorizationHeaderName)
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, constants.TokenTypeBearer+" ")
		if tokenString == authHeader {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "invalid authorization header format"))
			return
		}

		actor, err := verifier.Parse(tokenString)
		if err != nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "invalid or expired token"))
			return
		}

		c.Set(constants.ContextKeyActor, actor)
		c.Request = c.Request.WithContext(security.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireElevated rejects callers that are not ADMIN or SUPERVISOR. Must run after OptionalAuth.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := security.ActorFromContext(c.Request.Context())
		if actor == nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required"))
			return
		}
		if !actor.IsElevated() {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.ForbiddenError, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireStaff rejects anonymous callers.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if security.ActorFromContext(c.Request.Context()) == nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "authentication is required"))
			return
		}
		c.Next()
	}
}
