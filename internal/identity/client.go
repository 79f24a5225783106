// Package identity resolves who is making a request: an authenticated user, an
// anonymous browser client, an administrator, or nobody.
package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientIDCookie is the cookie that persists an anonymous client id.
const ClientIDCookie = "inkwell_client_id"

// ClientIDHeader carries the anonymous client id on API calls.
const ClientIDHeader = "X-Client-ID"

var clientIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// NewClientID issues an anonymous client id of the form client_<unix-ms>_<9 chars>.
func NewClientID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("client_%d_%s", now.UnixMilli(), suffix)
}

// ValidClientID reports whether id is acceptable as an anonymous identity.
func ValidClientID(id string) bool {
	return clientIDRegex.MatchString(id)
}
