/*
Package sandbox evaluates application modules in isolated goja runtimes.

Each module gets its own VM with scripting capability only: require,
process and the timer functions are removed, and the host is reachable
solely through the "app" bridge object supplied at load time. Every
evaluation runs under a timeout and is interrupted when it fires or when the
caller's context ends.

Isolation is best effort. A module cannot reach the host filesystem or
network directly, but it shares the process with the kernel.

	mod, err := sandbox.Load(ctx, "clock", source, sandbox.Bridge{
		"notify": func(title, message string) { ... },
	}, sandbox.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	_, err = mod.Call(ctx, "init", params)
*/
package sandbox
