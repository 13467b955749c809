// Package server implements the HTTP and WebSocket server for gocollab.
//
// Two hubs share one connection lifecycle: the chat hub relays and
// persists chat messages, the document hub owns the shared document and
// its presence list. Each hub processes registrations, frames and close
// notices on a single loop, so every connection observes one order of
// events. Persistence runs on a per-hub FIFO queue behind the loop.
package server
