// Package server exposes the bot over HTTP: the Slack Events API, slash commands, health and metrics.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Routes
//
//   - POST /slack/events: url_verification challenges and event_callback payloads ([EventsHandler])
//   - POST /slack/commands: form-encoded slash commands ([CommandsHandler])
//   - GET /healthz: database ping ([HealthHandler])
//   - GET /metrics: Prometheus exposition
//
// Requests are not signature checked; run the server behind something that is.
//
// # Event Dispatch
//
// [EventsHandler] answers every callback before doing any work and dispatches it in the background,
// detached from the request. An event_id is dispatched once; Slack redeliveries of it are acknowledged
// and dropped. [Start] drains in-flight dispatch after the listener shuts down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
