// Package bridge exposes a single Bestway spa on the local network.
//
// Home automation platforms rarely want to speak the signed cloud protocol
// themselves. The bridge polls the cloud through a coordinator and serves the
// result over a small HTTP API:
//
//	GET  /api/state     current snapshot, typed status and availability
//	POST /api/command   {"key": "heater_state", "value": 2}
//	POST /api/refresh   force a poll
//	GET  /healthz       liveness and version
//	GET  /ws            websocket stream of state updates
//
// # WebSocket
//
// On connect the client receives the current state as a {"type": "state"}
// message, then one message per change. Clients may send command objects
// with an optional "id"; each command is answered with a {"type": "result"}
// message carrying the same id. The server pings every 54 seconds and drops
// clients that miss a pong for 60 seconds.
//
// # Discovery
//
// With Advertise set, the bridge registers "_bestway-spa._tcp" via mDNS so
// clients can find it with the discovery package.
//
// # Graceful Shutdown
//
// Start returns after SIGINT, SIGTERM or context cancellation. The listener
// is closed, mDNS is withdrawn and websocket clients are disconnected.
package bridge
