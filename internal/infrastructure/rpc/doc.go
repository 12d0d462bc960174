// Package rpc implements the client side of the remote service envelope.
//
// Every remote capability (auth, users, apps, filesystem, system, sandbox) is
// reached through one ServiceHandle obtained from a Registry. A call is a form
// POST to the service endpoint carrying method, JSON params and a request id;
// the reply is the envelope {success, message?, data}.
//
//	reg := rpc.NewRegistry(cfg.Remote, logger)
//	auth, _ := reg.Connect("auth")
//	data, err := auth.Call(ctx, "validateToken", map[string]string{"token": tok})
//
// Failure classes:
//   - TransportError: network failure, non-2xx reply, malformed envelope,
//     open circuit breaker
//   - TimeoutError: deadline exceeded
//   - RemoteError: success:false, carrying the service's message
package rpc
