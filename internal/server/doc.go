// Package server implements the clinic's HTTP API: patient registration and
// login, appointment booking, diagnostic report requests with presigned
// upload and download URLs, admin views, and health probes. It wires the
// routes to a Store, an ObjectStore, and an event Publisher, and provides
// the lifecycle helpers used by tests and the production binary.
package server
