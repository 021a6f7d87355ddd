package model

import "fmt"

// ValidateUserID checks that a user ID (the token subject) conforms to the
// allowed format: 1-255 ASCII characters, alphanumeric plus dots, hyphens,
// underscores and @ signs.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("user_id is required")
	}
	if len(id) > 255 {
		return fmt.Errorf("user_id must be at most 255 characters")
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') &&
			c != '.' && c != '-' && c != '_' && c != '@' {
			return fmt.Errorf("user_id contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
