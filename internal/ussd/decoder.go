package ussd

import "strings"

// Decode splits the accumulated session text into its ordered menu-choice
// tokens. Splitting is purely lexical; malformed tokens are rejected by menu
// matching, not here. An empty string means the session just started.
func Decode(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Split(text, "*")
}
