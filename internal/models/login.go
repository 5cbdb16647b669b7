package models

import "regexp"

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:-?[A-Za-z0-9]){0,38}$`)

// ValidLogin reports whether s follows GitHub's username rules. Anything
// else must never reach an API path.
func ValidLogin(s string) bool {
	return loginPattern.MatchString(s)
}
