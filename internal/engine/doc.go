// Package engine runs marketplace matching in the background. Jobs submitted
// through the engine are matched asynchronously, and a sweep retries every
// job still open, typically after new provers have registered.
package engine
