package identity

import (
	"encoding/binary"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	idPrefix = "id_"
	idLen    = 9
)

// NewID returns an opaque record id: "id_" followed by nine base-36 characters.
func NewID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % pow36(idLen)
	s := strconv.FormatUint(n, 36)
	return idPrefix + strings.Repeat("0", idLen-len(s)) + s
}

func pow36(n int) uint64 {
	p := uint64(1)
	for i := 0; i < n; i++ {
		p *= 36
	}
	return p
}

// Initials takes the first letter of each space-separated word of name,
// keeps at most two, and uppercases them.
func Initials(name string) string {
	var initials []rune
	for _, word := range strings.Split(name, " ") {
		for _, r := range word {
			initials = append(initials, r)
			break
		}
		if len(initials) == 2 {
			break
		}
	}
	return strings.Map(unicode.ToUpper, string(initials))
}
