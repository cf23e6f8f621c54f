// auth.go — JWT middleware DMS.
// Валидирует Bearer token через AuthService (HS256, локальная подпись)
// и помещает access.Identity в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/godms/internal/api/errors"
	"github.com/bigkaa/godms/internal/domain/access"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyIdentity — ключ контекста для access.Identity.
const ContextKeyIdentity contextKey = "identity"

// TokenVerifier — проверка JWT. Реализуется service.AuthService.
type TokenVerifier interface {
	VerifyToken(tokenString string) (access.Identity, error)
}

// JWTAuth — middleware аутентификации по Bearer token.
type JWTAuth struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewJWTAuth создаёт middleware аутентификации.
func NewJWTAuth(verifier TokenVerifier, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware, проверяющий Bearer token.
// При успехе access.Identity помещается в контекст запроса.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			identity, err := j.verifier.VerifyToken(tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin возвращает middleware, пропускающий только роль Admin.
// Должен стоять после Middleware() — identity берётся из контекста.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}
			if !strings.EqualFold(identity.Role, access.RoleAdmin) {
				apierrors.Forbidden(w, "Требуется роль Admin")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext извлекает access.Identity из контекста запроса.
func IdentityFromContext(ctx context.Context) (access.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(access.Identity)
	return identity, ok
}
