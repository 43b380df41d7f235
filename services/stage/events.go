// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stage

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Broadcaster pushes state snapshots to connected UI clients over
// websockets so the timeline view updates without polling.
//
// Clients are write-only from the server's perspective; inbound
// messages are read and discarded to service control frames.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Demo tool served same-origin or via local tunnels.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: slog.With("component", "broadcaster"),
	}
}

// Serve upgrades the request and registers the connection until it
// closes. Blocks for the lifetime of the connection.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("Websocket client connected", "clients", count)

	// Drain inbound frames; exit on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.remove(conn)
	return nil
}

// Broadcast sends the snapshot to every connected client, dropping
// clients whose writes fail. Writes happen under the lock because
// gorilla connections allow only one concurrent writer.
func (b *Broadcaster) Broadcast(state StateSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(state); err != nil {
			b.logger.Warn("Dropping websocket client", "error", err)
			delete(b.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) remove(conn *websocket.Conn) {
	b.mu.Lock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		conn.Close()
	}
	b.mu.Unlock()
}
