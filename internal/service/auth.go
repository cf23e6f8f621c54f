// auth.go — сервис аутентификации и управления пользователями.
// Токены — локально выпускаемые HS256 JWT с id пользователя (sub),
// username и ролью; срок действия 2 часа. Дальше по конвейеру личность
// {userId, role} из проверенного токена считается достоверной.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/domain/model"
	"github.com/bigkaa/godms/internal/password"
	"github.com/bigkaa/godms/internal/repository"
)

// tokenTTL — срок действия выпускаемого токена.
const tokenTTL = 2 * time.Hour

// Prometheus-метрики аутентификации.
var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_logins_total",
		Help: "Количество попыток входа по результату.",
	}, []string{"result"})
)

// TokenClaims — claims выпускаемого JWT.
type TokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	// Token — подписанный JWT
	Token string
	// ExpiresAt — момент истечения токена
	ExpiresAt time.Time
	// User — вошедший пользователь (без хэша пароля)
	User *model.User
	// MustChangePassword — пользователю предписана смена пароля
	MustChangePassword bool
}

// AuthService — аутентификация и управление пользователями.
type AuthService struct {
	userRepo  repository.UserRepository
	audit     *AuditService
	jwtSecret []byte
	logger    *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(userRepo repository.UserRepository, audit *AuditService, jwtSecret string, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		audit:     audit,
		jwtSecret: []byte(jwtSecret),
		logger:    logger.With(slog.String("component", "auth_service")),
	}
}

// Register создаёт пользователя с указанной ролью.
// Роль должна существовать в реестре; занятый username — ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, plainPassword, roleName string) (*model.User, error) {
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username короче 3 символов", ErrValidation)
	}

	role, err := s.userRepo.GetRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: роль %q не существует", ErrValidation, roleName)
		}
		return nil, fmt.Errorf("поиск роли: %w", err)
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		RoleID:       role.ID,
		RoleName:     role.Name,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: пользователь %q уже существует", ErrConflict, username)
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	s.audit.Record(ctx, nil, model.AuditActionRegister, "user", &user.ID, &user.Username)
	s.logger.Info("Пользователь зарегистрирован",
		slog.Int64("user_id", user.ID),
		slog.String("username", username),
		slog.String("role", role.Name),
	)
	return user, nil
}

// Login проверяет учётные данные и выпускает токен.
// Неверный пароль и несуществующий пользователь дают одинаковую ошибку.
func (s *AuthService) Login(ctx context.Context, username, plainPassword string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			loginsTotal.WithLabelValues("bad_credentials").Inc()
			return nil, fmt.Errorf("%w: неверные учётные данные", ErrUnauthorized)
		}
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := password.Verify(user.PasswordHash, plainPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			loginsTotal.WithLabelValues("bad_credentials").Inc()
			return nil, fmt.Errorf("%w: неверные учётные данные", ErrUnauthorized)
		}
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("проверка пароля: %w", err)
	}

	if !user.IsActive {
		loginsTotal.WithLabelValues("inactive").Inc()
		return nil, fmt.Errorf("%w: пользователь отключён", ErrUnauthorized)
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	token, err := s.issueToken(user, expiresAt)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	loginsTotal.WithLabelValues("ok").Inc()
	s.audit.Record(ctx, &user.ID, model.AuditActionLogin, "user", &user.ID, nil)

	return &LoginResult{
		Token:              token,
		ExpiresAt:          expiresAt,
		User:               user,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// AssignRole переназначает роль пользователя (только Admin).
func (s *AuthService) AssignRole(ctx context.Context, caller access.Identity, username, roleName string) error {
	if !strings.EqualFold(caller.Role, access.RoleAdmin) {
		return fmt.Errorf("%w: назначение ролей доступно только администратору", ErrForbidden)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: пользователь %q", ErrNotFound, username)
		}
		return fmt.Errorf("поиск пользователя: %w", err)
	}

	role, err := s.userRepo.GetRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: роль %q не существует", ErrValidation, roleName)
		}
		return fmt.Errorf("поиск роли: %w", err)
	}

	if err := s.userRepo.UpdateRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("назначение роли: %w", err)
	}

	s.audit.Record(ctx, callerID(caller), model.AuditActionAssignRole, "user", &user.ID, &role.Name)
	s.logger.Info("Роль назначена",
		slog.String("username", username),
		slog.String("role", role.Name),
	)
	return nil
}

// ChangePassword меняет пароль вызывающего после проверки старого.
// Успешная смена снимает флаг must_change_password.
func (s *AuthService) ChangePassword(ctx context.Context, caller access.Identity, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: пользователь %d", ErrNotFound, caller.UserID)
		}
		return fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := password.Verify(user.PasswordHash, oldPassword); err != nil {
		return fmt.Errorf("%w: неверный текущий пароль", ErrUnauthorized)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("смена пароля: %w", err)
	}

	s.logger.Info("Пароль изменён", slog.Int64("user_id", user.ID))
	return nil
}

// EnsureAdmin создаёт начального администратора, если его нет.
// Вызывается при старте (bootstrap): без него в систему не войти.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, plainPassword string) error {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("проверка администратора: %w", err)
	}

	if _, err := s.Register(ctx, username, plainPassword, access.RoleAdmin); err != nil {
		return fmt.Errorf("создание администратора: %w", err)
	}
	s.logger.Info("Создан начальный администратор", slog.String("username", username))
	return nil
}

// VerifyToken проверяет подпись и срок действия токена,
// возвращает личность вызывающего.
func (s *AuthService) VerifyToken(tokenString string) (access.Identity, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return access.Identity{}, fmt.Errorf("%w: невалидный токен", ErrUnauthorized)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return access.Identity{}, fmt.Errorf("%w: невалидный subject", ErrUnauthorized)
	}
	return access.Identity{UserID: userID, Role: claims.Role}, nil
}

// issueToken подписывает HS256 JWT для пользователя.
func (s *AuthService) issueToken(user *model.User, expiresAt time.Time) (string, error) {
	claims := TokenClaims{
		Username: user.Username,
		Role:     user.RoleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			NotBefore: jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
