// Пакет password — хэширование и проверка паролей пользователей (bcrypt).
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch — пароль не совпадает с хэшем.
var ErrMismatch = errors.New("пароль не совпадает")

// minLength — минимальная длина пароля.
const minLength = 8

// Hash возвращает bcrypt-хэш пароля.
func Hash(plain string) (string, error) {
	if len(plain) < minLength {
		return "", fmt.Errorf("пароль короче %d символов", minLength)
	}
	// bcrypt обрезает вход на 72 байтах; длиннее не принимаем,
	// чтобы не создавать иллюзию учтённого хвоста
	if len(plain) > 72 {
		return "", errors.New("пароль длиннее 72 байт")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(hash), nil
}

// Verify сравнивает пароль с хэшем. Возвращает ErrMismatch при несовпадении.
func Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("ошибка проверки пароля: %w", err)
	}
	return nil
}
