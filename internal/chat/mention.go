package chat

import (
	"context"
	"regexp"
	"strings"
)

// mentionPattern matches a Slack user mention and any whitespace that
// follows it.
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>\s*`)

// userIDPattern extracts the user ID from a mention.
var userIDPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// CleanMentionText strips the leading bot mention from an app_mention
// message. Only the first mention is removed; later mentions may name
// meeting participants.
func CleanMentionText(text string) string {
	loc := mentionPattern.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
}

// ResolveMentions replaces every user mention in text with the email on
// that user's profile, so the model sees calendar-ready attendee addresses.
// Mentions that cannot be resolved are left untouched.
func ResolveMentions(ctx context.Context, client *Client, text string) string {
	return userIDPattern.ReplaceAllStringFunc(text, func(mention string) string {
		userID := userIDPattern.FindStringSubmatch(mention)[1]
		email, err := client.UserEmail(ctx, userID)
		if err != nil {
			return mention
		}
		return email
	})
}
