package object

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"mgit/internal/errors"

	"github.com/opencontainers/go-digest"
)

// AddressSize is the length in bytes of a content address.
const AddressSize = sha256.Size

// Address is the SHA-256 digest of a tagged payload.
type Address [AddressSize]byte

// String renders the address as lowercase hex.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Digest renders the address in algorithm-prefixed form, e.g. "sha256:2cf2...".
func (a Address) Digest() digest.Digest {
	return digest.NewDigestFromEncoded(digest.SHA256, a.String())
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress accepts bare hex or a "sha256:"-prefixed digest.
func ParseAddress(s string) (Address, error) {
	var a Address

	encoded := s
	if strings.Contains(s, ":") {
		d, err := digest.Parse(s)
		if err != nil {
			return a, errors.InvalidAddress("malformed digest", s, err)
		}
		if d.Algorithm() != digest.SHA256 {
			return a, errors.InvalidAddress("unsupported digest algorithm "+d.Algorithm().String(), s, nil)
		}
		encoded = d.Encoded()
	}

	if len(encoded) != hex.EncodedLen(AddressSize) {
		return a, errors.InvalidAddress("address must be 64 hex characters", s, nil)
	}
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return a, errors.InvalidAddress("address is not hex", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// Tagged builds "<tag> <len>\x00" followed by content.
func Tagged(tag string, content []byte) []byte {
	size := strconv.Itoa(len(content))
	payload := make([]byte, 0, len(tag)+1+len(size)+1+len(content))
	payload = append(payload, tag...)
	payload = append(payload, ' ')
	payload = append(payload, size...)
	payload = append(payload, 0)
	return append(payload, content...)
}

// Hash returns the address content would be stored under with the given tag.
func Hash(tag string, content []byte) Address {
	return sha256.Sum256(Tagged(tag, content))
}

func validateTag(tag string) error {
	if tag == "" {
		return errors.InvalidTag("type tag must not be empty", tag)
	}
	if strings.ContainsAny(tag, " \x00") {
		return errors.InvalidTag("type tag must not contain a space or NUL", tag)
	}
	return nil
}
