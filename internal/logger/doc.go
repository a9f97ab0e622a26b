// Package logger wraps zap with:
//   - a global sugared logger writing console output to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - leveled helpers (Infof, WarnKV, ...) that read the logger from a context.
//
// Every pipeline step takes a context and logs through it, so a command can
// scope its logger once and have fetch, install and smoke-test output share
// the same name and fields. Stdout is left to user-facing output.
package logger
