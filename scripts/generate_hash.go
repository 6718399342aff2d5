//go:build ignore

// generate_hash.go готовит Argon2id-хеш пароля казначейской панели.
// Запуск: go run scripts/generate_hash.go <пароль>
//
// Полученную строку положите в .env как ADMIN_PASSWORD_HASH — именно её
// сверяет /login в личке бота. Параметры хеша должны совпадать с теми,
// что ожидает internal/features/admin (m=65536,t=3,p=2).
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	saltLength              = 16
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	encoded, err := hashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка генерации хеша: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ADMIN_PASSWORD_HASH=" + encoded)
}

// hashPassword возвращает хеш в формате
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}
