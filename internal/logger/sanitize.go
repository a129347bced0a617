package logger

import "strings"

// Sanitizer masks known secret values (API keys, mail passwords) in strings
// destined for logs or user-facing replies.
type Sanitizer struct {
	secrets []string
}

func NewSanitizer(secrets ...string) *Sanitizer {
	s := &Sanitizer{}
	s.Add(secrets...)
	return s
}

// Add registers additional secret values. Empty and very short values are
// ignored to avoid masking ordinary text.
func (s *Sanitizer) Add(secrets ...string) {
	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if len(secret) > 4 {
			s.secrets = append(s.secrets, secret)
		}
	}
}

// Sanitize replaces every registered secret in the message with a masked
// placeholder keeping the first and last characters for debugging.
func (s *Sanitizer) Sanitize(message string) string {
	for _, secret := range s.secrets {
		masked := "***"
		if len(secret) > 8 {
			masked = secret[:2] + "***" + secret[len(secret)-2:]
		}
		message = strings.ReplaceAll(message, secret, masked)
	}
	return message
}
