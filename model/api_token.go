package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type APIToken struct {
	gorm.Model
	VendorID    string `gorm:"size:40;index;not null"`
	TokenPrefix string `gorm:"size:16;index;not null"`
	TokenHash   string `gorm:"size:64;uniqueIndex;not null"`
	Salt        string `gorm:"size:64;not null"`

	Name       string `gorm:"size:100"`
	Scope      string `gorm:"size:200"`
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	Disabled   bool `gorm:"not null;default:false"`
}

func (APIToken) TableName() string { return "api_tokens" }

// Token scopes. An empty scope means full access.
const (
	ScopeFull = "full"
	ScopeRead = "read"
)

// ParseScope accepts "", "full" and "read".
func ParseScope(s string) (string, error) {
	switch s {
	case "", ScopeFull:
		return ScopeFull, nil
	case ScopeRead:
		return ScopeRead, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Allows reports whether the token may perform an HTTP method.
func (t *APIToken) Allows(method string) bool {
	if t.Scope != ScopeRead {
		return true
	}
	return method == http.MethodGet || method == http.MethodHead
}

// ---- Token-Factory (einzige Stelle mit Random/Hash) ----
func makeToken() (plain, prefix, saltHex, tokenHash string, err error) {
	// 32 zufällige Bytes → URL-sicher ohne '='
	randBytes := make([]byte, 32)
	if _, e := rand.Read(randBytes); e != nil {
		return "", "", "", "", e
	}
	plain = base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(randBytes)
	if len(plain) < 8 {
		return "", "", "", "", errors.New("token generation failed")
	}
	prefix = plain[:8]

	// pro Token eigener Salt
	salt := make([]byte, 16)
	if _, e := rand.Read(salt); e != nil {
		return "", "", "", "", e
	}
	saltHex = hex.EncodeToString(salt)

	h := sha256.Sum256(append(salt, []byte(plain)...))
	tokenHash = hex.EncodeToString(h[:])
	return
}
