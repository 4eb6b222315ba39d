// Package dashboard keeps the admin dashboard view state fresh.
//
// The adapter subscribes to realtime events and refetches the stats endpoints
// when user counts change or a live record is processed successfully. A
// polling interval covers periods without events. Refresh requests coalesce:
// while one refresh is pending, further requests are absorbed.
package dashboard
