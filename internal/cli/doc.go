// Package cli provides the interactive MediTrack command-line client.
//
// The REPL is the UI layer over services.MedicationService and
// services.UserService. It restores the persisted session on start,
// drops it when the stored token no longer verifies, and prints a notice
// whenever a medication changes.
//
// Commands:
//   - register, login, logout, whoami, recover
//   - list, add, edit, delete
//   - help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends.
package cli
