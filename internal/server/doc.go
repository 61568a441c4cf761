// Package server is the inbound HTTP surface of the assistant.
//
// Three routes carry the product traffic:
//
//   - POST /slack/events: Events API callbacks (URL verification and
//     app_mention events), verified against the signing secret
//   - POST /slack/interactive: button clicks and modal submissions
//   - GET /oauth/google/callback: the Google consent redirect; completing
//     it replays the request the user parked before authenticating
//
// Events are acknowledged within Slack's response deadline and processed in
// the background. Health probes live on the same listener; Prometheus
// metrics are served by a separate MetricsServer on a dedicated port.
package server
