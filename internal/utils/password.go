package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SchemeBcrypt = "bcrypt"
	SchemePBKDF2 = "pbkdf2"

	MinPasswordLength = 6

	pbkdf2Prefix     = "pbkdf2_sha256"
	pbkdf2Iterations = 390000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = sha256.Size
)

var ErrPasswordTooShort = errors.New("password too short")

// PasswordHasher produces bcrypt hashes and falls back to PBKDF2-SHA256 when
// bcrypt cannot take the input or is disabled by configuration. Both formats
// verify regardless of the scheme currently preferred.
type PasswordHasher struct {
	Scheme     string
	BcryptCost int
	Iterations int

	dummyOnce sync.Once
	dummy     string
}

func NewPasswordHasher(scheme string) *PasswordHasher {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme != SchemePBKDF2 {
		scheme = SchemeBcrypt
	}
	return &PasswordHasher{
		Scheme:     scheme,
		BcryptCost: bcrypt.DefaultCost,
		Iterations: pbkdf2Iterations,
	}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	const op = "PasswordHasher.Hash"

	password = strings.TrimSpace(password)
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", E(CodeInvalidArgument, op,
			fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", MinPasswordLength), ErrPasswordTooShort)
	}

	if h.Scheme != SchemePBKDF2 {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost())
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", E(CodeInternal, op, "Não foi possível gerar o hash da senha no momento.", err)
		}
	}

	return h.hashPBKDF2(password)
}

// Check reports whether password matches hash. The format is detected from the
// hash prefix; unknown or malformed hashes never match.
func (h *PasswordHasher) Check(hash, password string) bool {
	password = strings.TrimSpace(password)
	if hash == "" || password == "" {
		return false
	}

	switch {
	case strings.HasPrefix(hash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, pbkdf2Prefix+"$"):
		return checkPBKDF2(hash, password)
	default:
		return false
	}
}

// DummyCheck burns roughly the same time as a real bcrypt comparison. Used for
// unknown accounts so response time does not reveal which e-mails exist.
func (h *PasswordHasher) DummyCheck(password string) {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), h.bcryptCost())
		if err == nil {
			h.dummy = string(b)
		}
	})
	if h.dummy != "" {
		_ = bcrypt.CompareHashAndPassword([]byte(h.dummy), []byte(password))
	}
}

func (h *PasswordHasher) bcryptCost() int {
	if h.BcryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return h.BcryptCost
}

func (h *PasswordHasher) hashPBKDF2(password string) (string, error) {
	iterations := h.Iterations
	if iterations <= 0 {
		iterations = pbkdf2Iterations
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", E(CodeInternal, "PasswordHasher.Hash", "Não foi possível gerar o hash da senha no momento.", err)
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, pbkdf2KeyLen, sha256.New)

	return strings.Join([]string{
		pbkdf2Prefix,
		strconv.Itoa(iterations),
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	}, "$"), nil
}

func checkPBKDF2(hash, password string) bool {
	parts := strings.SplitN(hash, "$", 4)
	if len(parts) != 4 {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
