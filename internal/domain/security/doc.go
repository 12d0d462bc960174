// Package security holds the authenticated user and the capability set.
//
// Permissions are dotted strings such as "filesystem.write.*" or
// "app.launch.notes". A check passes on an exact grant, on a trailing
// wildcard grant at any prefix level, or when the user holds the admin role.
package security
