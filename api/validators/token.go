package validators

import (
	"errors"
	"strings"
)

var ErrMissingBearer = errors.New("missing bearer token")

// BearerToken returns the credential of an Authorization header. The scheme
// is matched case-insensitively and may be omitted.
func BearerToken(header string) (string, error) {
	scheme, credential, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		credential = scheme
	} else if !strings.EqualFold(scheme, "bearer") {
		return "", ErrMissingBearer
	}
	credential = strings.TrimSpace(credential)
	if credential == "" || strings.EqualFold(credential, "bearer") {
		return "", ErrMissingBearer
	}
	return credential, nil
}

// SanitizeToken trims a header-supplied opaque token. Tokens longer than
// maxLen or containing non-printable bytes are treated as absent.
func SanitizeToken(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return ""
	}
	for i := 0; i < len(trimmed); i++ {
		if c := trimmed[i]; c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return trimmed
}
