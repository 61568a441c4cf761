// Package chat talks to the Slack surface: a small Web API client, the
// Block Kit payloads the assistant renders, and the presenter that maps
// agent outcomes onto them.
package chat
