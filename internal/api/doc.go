// Package api provides the backend REST client for the admin stats endpoints
// the console refreshes when realtime events arrive.
//
// Endpoints:
//   - GET /admin/stats/connected-users
//   - GET /admin/stats/recent-lives?minutes=&limit=
//   - GET /admin/stats/dashboard
//   - GET /admin/stats/credits-timeline?hours=&interval_minutes=
//
// Requests carry the session token as a bearer token. A 401 response invokes
// the unauthorized hook so the session can be cleared.
package api
