// Command webdesk hosts a WebDesk kernel.
//
//	# boot against a remote backend and serve the inspector on :7070
//	webdesk boot --remote http://localhost:8080/api --user alice
//
//	# inspect the persisted local filesystem without booting
//	webdesk fs ls /users/alice --storage-dir ~/.webdesk
//	webdesk fs write /users/alice/Documents/todo.txt "milk"
//
// Configuration comes from WEBDESK_* environment variables, optionally
// overlaid by a TOML file (--config), overridden by flags. SIGINT and
// SIGTERM shut the kernel down gracefully.
package main
