// Package logx is cronalarmd's logging layer on top of zerolog.
//
// Components receive a Logger value, tag it with With (usually
// String("comp", ...)) and log with Field helpers. Loggers created by a
// Service follow Service.Apply, which is how a config reload changes level or
// sinks without re-wiring anything.
package logx
