// Package session holds the console's access token and decides when the
// realtime client should be connected.
//
// Tokens are JWTs issued by the backend. Claims are read without signature
// verification; the backend verifies the token on every request and on the
// socket handshake, the console only needs the roles and expiry.
package session
