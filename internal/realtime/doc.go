// Package realtime implements the console's realtime messaging client.
//
// The Client:
//   - Holds one authenticated WebSocket connection at a time
//   - Reconnects after abnormal closes with linear backoff (base delay × attempt), capped
//   - Decodes inbound {"kind", "payload"} frames and routes them to handlers by kind
//   - Notifies connect/disconnect lifecycle handlers
//
// Callers own the instance and decide when to Connect and Disconnect; the
// client never inspects authentication state itself. Handlers run on the
// goroutine that reads the socket and are invoked on a snapshot of the
// registry, so they may subscribe, unsubscribe, Send or Disconnect freely.
package realtime
