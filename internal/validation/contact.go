package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStripRegex = regexp.MustCompile(`[\s\-()]`)
	phoneRegex      = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// ErrInvalidContact is returned when a contact is neither an email nor a phone number.
var ErrInvalidContact = errors.New("please provide a valid email address or phone number")

// ContactKind mirrors models.ContactKind without importing models.
type ContactKind string

const (
	KindEmail ContactKind = "email"
	KindPhone ContactKind = "phone"
)

// Contact is a classified and normalized mailing list contact.
type Contact struct {
	Kind       ContactKind
	Raw        string
	Normalized string
}

// ClassifyContact trims raw and classifies it. Email wins when both patterns could match.
// Emails normalize to lowercase, phone numbers to their digits.
func ClassifyContact(raw string) (Contact, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Contact{}, ErrInvalidContact
	}

	if emailRegex.MatchString(trimmed) {
		return Contact{Kind: KindEmail, Raw: trimmed, Normalized: strings.ToLower(trimmed)}, nil
	}

	stripped := phoneStripRegex.ReplaceAllString(trimmed, "")
	if phoneRegex.MatchString(stripped) {
		return Contact{Kind: KindPhone, Raw: trimmed, Normalized: strings.TrimPrefix(stripped, "+")}, nil
	}

	return Contact{}, ErrInvalidContact
}
