// Package instrumentation provides OpenTelemetry metrics for the scheduling
// assistant, exported in Prometheus format on a dedicated listener.
//
// Metric categories:
//   - http_requests_total / http_request_duration_seconds: inbound chat and
//     OAuth traffic by method, path, and status
//   - tool_invocations_total / tool_duration_seconds: scheduling tool
//     executions by tool name and result status
//   - llm_invocations_total / llm_input_tokens_total /
//     llm_output_tokens_total / llm_invocation_duration_seconds: model usage
//
// A disabled provider hands out a no-op recorder, so callers never branch on
// whether instrumentation is on.
package instrumentation
