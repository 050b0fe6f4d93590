// Package application is the entry point host programs call at startup. New
// builds the layered configuration for an application handle, registers
// extensions derived from it (such as task-queue settings), and can wire the
// read-only configuration API into an HTTP server.
package application
