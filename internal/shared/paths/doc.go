// Package paths defines the virtual filesystem layout.
//
// # Directory Structure
//
//	/
//	├── users/
//	│   └── <username>/
//	│       ├── Desktop/      (Welcome.txt is seeded here)
//	│       └── Documents/
//	├── apps/
//	│   └── <app-id>/         (installed module sources)
//	└── system/
//
// # Usage
//
//	import "github.com/GriffinCanCode/WebDesk/internal/shared/paths"
//
//	p, err := paths.Normalize("/users/alice/../alice/Desktop")
//	// p == "/users/alice/Desktop"
//
//	if paths.IsSystemPath(p) {
//	    // admin only
//	}
package paths
