// Package http is the inspector API: a small gin surface over a running
// kernel for hosts, scripts and debugging.
//
//	GET    /health              liveness and kernel status
//	GET    /state               kernel state and subsystem statistics
//	GET    /apps                installed applications
//	POST   /apps/:id/launch     launch, optional body {"params":{...}}
//	GET    /processes           running processes
//	DELETE /processes/:pid      terminate a process
//	GET    /windows             windows in stacking order
//	GET    /taskbar             taskbar entries
//	GET    /fs/*path            list a directory or read a file
//	GET    /metrics             Prometheus metrics
//	GET    /events              websocket event stream
//
// Failures use the same envelope shape as the remote services:
// {"success":false,"message":...,"kind":...}.
package http
