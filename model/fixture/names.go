package fixture

import (
	"strings"

	"github.com/gofrs/uuid/v5"
)

// UniqueName returns a name that no other run can produce, like
// restricted-folder-0b8e4b1c-5a4f-4d6b-9c1e-2f0a9a3e4c5d for the
// restricted-folder prefix.
func UniqueName(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV4()).String()
}

// UniquePrincipalID returns a principal id made of the letters and digits
// of the prefix followed by a random hexadecimal suffix, like
// testuser0b8e4b1c5a4f4d6b9c1e2f0a9a3e4c5d. Such an id needs no escaping,
// neither in a URL nor in a LIKE pattern.
func UniquePrincipalID(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	b.WriteString(strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", ""))
	return b.String()
}

// Pattern returns the LIKE pattern matching every UniqueName of the prefix.
// An underscore of the prefix matches any character.
func Pattern(prefix string) string {
	return prefix + "-%"
}
