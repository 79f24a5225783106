// Package validation holds input rules shared by services and handlers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxSlugLength bounds generated post ids.
const MaxSlugLength = 100

var (
	slugStripRegex      = regexp.MustCompile(`[^\w\s-]`)
	slugWhitespaceRegex = regexp.MustCompile(`\s+`)
	slugDashRegex       = regexp.MustCompile(`-+`)
	postIDRegex         = regexp.MustCompile(`^[a-z0-9_][a-z0-9_-]*$`)
)

// Post ids that would shadow API routes.
var reservedPostIDs = map[string]struct{}{
	"new":         {},
	"publish-due": {},
	"admin":       {},
	"drafts":      {},
}

// Slugify derives a post id from a title: lowercase, punctuation stripped,
// whitespace collapsed to single hyphens, truncated to MaxSlugLength.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRegex.ReplaceAllString(s, "")
	s = slugWhitespaceRegex.ReplaceAllString(s, "-")
	s = slugDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// SuggestSlug returns a disambiguated id for a slug that is already taken.
func SuggestSlug(slug string, now time.Time) string {
	suffix := fmt.Sprintf("-%d", now.UnixMilli())
	if len(slug)+len(suffix) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength-len(suffix)], "-")
	}
	return slug + suffix
}

// IsReservedPostID reports whether id collides with a fixed route segment.
func IsReservedPostID(id string) bool {
	_, ok := reservedPostIDs[id]
	return ok
}

// ValidatePostID checks that id looks like a generated slug.
func ValidatePostID(id string) error {
	if id == "" || len(id) > MaxSlugLength || !postIDRegex.MatchString(id) {
		return fmt.Errorf("invalid post id")
	}
	return nil
}
