// Package services holds typed clients for the remote auth, apps and system
// services. Each client wraps one rpc.Caller and owns that service's method
// table; the filesystem service's table lives with the remote filesystem
// backend.
package services
