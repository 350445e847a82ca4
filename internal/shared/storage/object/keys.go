package object

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrInvalidFileName is returned for empty names and traversal attempts.
var ErrInvalidFileName = eris.New("object: invalid file name")

// NewOwnerKey returns a unique slash-separated key for fileName in owner's
// namespace. The owner segment is a hex digest so raw user ids never reach
// the bucket.
func NewOwnerKey(owner, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerSegment(owner), strings.ReplaceAll(uuid.NewString(), "-", "")+"_"+name), nil
}

// OwnerSegment is the key segment for an owner id.
func OwnerSegment(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}

// SanitizeFileName flattens path separators and rejects traversal.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// ApplyPrefix joins a bucket prefix and key with exactly one separator.
func ApplyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

// NormalizePrefix trims whitespace and surrounding slashes.
func NormalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
