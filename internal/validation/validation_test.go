package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"Simple", "Hello World", "hello-world"},
		{"Punctuation", "What's new in Go 1.26?", "whats-new-in-go-126"},
		{"Extra Whitespace", "  Spaces   everywhere \t here ", "spaces-everywhere-here"},
		{"Hyphen Runs", "a -- b --- c", "a-b-c"},
		{"Leading Symbols", "!!! Launch", "launch"},
		{"Only Symbols", "?!*", ""},
		{"Underscores Kept", "snake_case title", "snake_case-title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	t.Parallel()
	got := Slugify(strings.Repeat("word ", 60))
	assert.LessOrEqual(t, len(got), MaxSlugLength)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestSuggestSlug(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1767225600000)
	assert.Equal(t, "hello-world-1767225600000", SuggestSlug("hello-world", now))

	long := strings.Repeat("a", MaxSlugLength)
	got := SuggestSlug(long, now)
	assert.Len(t, got, MaxSlugLength)
	assert.True(t, strings.HasSuffix(got, "-1767225600000"))
}

func TestValidatePostID(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePostID("hello-world"))
	assert.Error(t, ValidatePostID(""))
	assert.Error(t, ValidatePostID("Hello"))
	assert.Error(t, ValidatePostID("../etc"))
	assert.True(t, IsReservedPostID("publish-due"))
	assert.False(t, IsReservedPostID("hello-world"))
}

func TestClassifyContact(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		raw        string
		kind       ContactKind
		normalized string
		wantErr    bool
	}{
		{"Email", "  Foo@Example.com ", KindEmail, "foo@example.com", false},
		{"Phone With Formatting", "+1 (555) 123-4567", KindPhone, "15551234567", false},
		{"Phone Digits", "5551234", KindPhone, "5551234", false},
		{"Phone Too Short", "12345", "", "", true},
		{"Phone Too Long", "1234567890123456", "", "", true},
		{"Missing Domain Dot", "foo@example", "", "", true},
		{"Empty", "   ", "", "", true},
		{"Garbage", "not a contact", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ClassifyContact(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidContact)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.normalized, c.Normalized)
		})
	}
}
