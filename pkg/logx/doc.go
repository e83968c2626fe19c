// Package logx provides a small structured logging facade over zerolog.
//
// Handlers hold a Logger value; the backing Service can swap sinks and
// levels at runtime (config reload) without invalidating existing loggers.
package logx
