// Package server exposes a read-only HTTP JSON view of the running transfer batch.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied so the first one added is the outermost and runs first.
//
// The [BasicRouter] implementation uses a gorilla/mux router internally, so routes may carry
// path variables, and unknown routes or methods receive JSON 404 and 405 bodies.
//
// # Batch View
//
// [BatchHandler] serves the current batch of a [BatchSource]:
//   - GET /batch : phase, summary and every job
//   - GET /batch/jobs/{playlistID} : a single job
//
// The CLI starts it with `transfer run --listen` so another terminal or a script can follow a long batch.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
