// Package relay forwards committed registry events to a socket.io
// indexer. Each event is emitted as one "registry-event" message carrying
// the event JSON.
package relay
