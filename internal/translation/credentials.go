package translation

import (
	"os"
	"regexp"
)

// DefaultCredentialPrefix is the environment variable holding the shared
// translation key; per-requester keys append "_<requesterID>".
const DefaultCredentialPrefix = "DEEPL_AUTH_KEY"

// requesterIDRegex is the shape of a chat user id. Ids that do not match
// never select a per-requester key.
var requesterIDRegex = regexp.MustCompile(`^[UW][A-Z0-9]{2,10}$`)

// ValidRequesterID reports whether id has the shape of a chat user id.
func ValidRequesterID(id string) bool {
	return requesterIDRegex.MatchString(id)
}

// CredentialResolver picks the auth key used for a requester.
type CredentialResolver interface {
	Resolve(requesterID string) (string, bool)
}

// EnvCredentials resolves keys from the process environment by naming
// convention: "<Prefix>_<requesterID>" when set and the id is well formed,
// otherwise "<Prefix>". Empty values count as unset.
type EnvCredentials struct {
	Prefix string

	// Lookup reads a variable; os.LookupEnv when nil.
	Lookup func(key string) (string, bool)
}

// Resolve returns the key for requesterID, or false when neither the
// per-requester nor the default key is set.
func (e EnvCredentials) Resolve(requesterID string) (string, bool) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultCredentialPrefix
	}
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if ValidRequesterID(requesterID) {
		if key, ok := lookup(prefix + "_" + requesterID); ok && key != "" {
			return key, true
		}
	}
	if key, ok := lookup(prefix); ok && key != "" {
		return key, true
	}
	return "", false
}
