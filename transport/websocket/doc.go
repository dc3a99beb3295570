// Package websocket provides the real-time transport: a hub that tracks
// connections and multicast groups, per-connection read/write pumps, and a
// router that maps request events onto coordinator operations.
//
// Clients send request envelopes ({id, event, data}) and receive an ack per
// request plus server-initiated pushes ({event, data}). The hub implements
// the broadcast interfaces the coordinators depend on, so the game packages
// never import this one.
package websocket
