// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, logging, metrics and debug introspection layer
// for the synchronization core.
//
// Provides:
//   - YAML and flag configuration with validation
//   - A key/value config store whose listeners react to changed keys
//   - go-kit logger construction with level filtering
//   - A prometheus registry with runtime collectors
//   - Debug probe registration and state export
//
// Platform-specific probes are build-tag-partitioned.
package control
