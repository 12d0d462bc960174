// Package kernel ties the subsystems of one desktop session together.
//
// A Kernel is built with New and driven by its host: Boot loads the remote
// configuration, wires events, security, filesystem and processes, connects
// the named services, restores a saved session and installs the storage
// backend. Applications start through LaunchApplication, which checks
// permissions, resolves the manifest and entry point and opens the window.
//
//	k, err := kernel.New(kernel.Options{Config: cfg, Logger: logger})
//	if err := k.Boot(ctx); err != nil {
//		return err
//	}
//	defer k.Shutdown(context.Background(), "host exit")
//
//	if _, err := k.Login(ctx, "alice", password); err != nil {
//		return err
//	}
//	proc, err := k.LaunchApplication(ctx, "notepad", map[string]interface{}{"path": "/users/alice/Desktop/Welcome.txt"})
package kernel
