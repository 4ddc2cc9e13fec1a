package token

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Generator produces opaque, unguessable codes inside a namespace. Tracking
// codes and confirmation tokens share this capability so tests can swap in
// a deterministic implementation.
type Generator interface {
	Generate(namespace string) (string, error)
}

// Known namespaces. The prefix keeps codes self-describing in logs and
// support tickets without leaking internal ids.
const (
	NamespaceTracking     = "trk"
	NamespaceConfirmation = "cnf"
	NamespaceWebhook      = "whs"
)

const (
	codeLength = 26
	alphabet   = "0123456789abcdefghjkmnpqrstvwxyz"
)

type randomGenerator struct{}

// NewGenerator returns the production crypto/rand-backed generator.
func NewGenerator() Generator {
	return randomGenerator{}
}

// Generate returns "<namespace>_<26 chars>" using a Crockford-style base32
// alphabet. Collision probability is negligible; callers still guard with a
// unique index.
func (randomGenerator) Generate(namespace string) (string, error) {
	if strings.TrimSpace(namespace) == "" {
		return "", fmt.Errorf("token namespace is required")
	}

	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return namespace + "_" + string(buf), nil
}

// HasNamespace reports whether the code is well-formed for the namespace.
// Used to reject garbage before touching storage.
func HasNamespace(code, namespace string) bool {
	if !strings.HasPrefix(code, namespace+"_") {
		return false
	}
	body := code[len(namespace)+1:]
	if len(body) != codeLength {
		return false
	}
	for _, r := range body {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
