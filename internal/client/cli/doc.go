// Package cli is the interactive command-line front end of the permit client.
//
// App wires configuration, the local store, the REST client, the sync engine
// and the PermitService facade, then runs a REPL next to the background sync
// loop and the connectivity watcher. Typical flow:
//
//	ps> guest online >
//	login
//	ps> jane@example.com online >
//	packages
//	create
//	sync
//
// Reads fall back to the cached data when the server cannot be reached and
// writes are queued. "stats" shows the queue, "dead" lists changes the
// server refused, and "revive <entry>" puts one back in the queue.
package cli
