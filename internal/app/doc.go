// Package app wires the plugin together outside the host: it owns the node
// registry assembly, logger construction, and the inspection commands the
// CLI exposes, decoupled from any specific entrypoint.
package app
