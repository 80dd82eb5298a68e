// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// Message types
const (
	MessageTypeKillmail = "killmail"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// DefaultBroadcastBuffer is the hub's pending message capacity.
const DefaultBroadcastBuffer = 256

// Message is the envelope for every frame sent to or read from a client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// KillSummary is the live view of one notified killmail.
type KillSummary struct {
	KillmailID  int64     `json:"killmail_id"`
	KillTime    time.Time `json:"killmail_time"`
	SystemID    int64     `json:"solar_system_id"`
	System      string    `json:"system"`
	Wormhole    bool      `json:"wormhole"`
	Victim      string    `json:"victim"`
	Corporation string    `json:"corporation"`
	Ship        string    `json:"ship"`
	TotalValue  float64   `json:"total_value"`
	Channels    []string  `json:"channels"`
	Reasons     []string  `json:"reasons"`
}

// SummaryOf builds the live view of km routed by decision.
func SummaryOf(km *models.Killmail, decision models.Decision) KillSummary {
	s := KillSummary{
		KillmailID:  km.ID,
		KillTime:    km.KillTime,
		SystemID:    km.SystemID,
		System:      km.SystemName.Display(models.EntitySystem),
		Wormhole:    km.IsWormhole(),
		Victim:      km.Victim.CharacterName.Display(models.EntityCharacter),
		Corporation: km.Victim.CorporationName.Display(models.EntityCorporation),
		Ship:        km.Victim.ShipName.Display(models.EntityShipType),
		TotalValue:  km.ZKB.TotalValue,
		Channels:    make([]string, 0, len(decision.Targets)),
		Reasons:     make([]string, 0, len(decision.Reasons)),
	}
	for _, t := range decision.Targets {
		s.Channels = append(s.Channels, t.ChannelID)
	}
	for _, r := range decision.Reasons {
		s.Reasons = append(s.Reasons, r.Text)
	}
	return s
}

// Hub tracks connected clients and fans broadcasts out to them. Client
// registration is synchronous; broadcasts are queued and delivered by Serve.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan Message
	log       zerolog.Logger
}

// NewHub creates a Hub with DefaultBroadcastBuffer.
func NewHub() *Hub {
	return newHub(DefaultBroadcastBuffer)
}

func newHub(buffer int) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, buffer),
		log:       logging.WithComponent("live"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.LiveClients.Set(float64(n))
	h.log.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("Live client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.LiveClients.Set(float64(n))
	h.log.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("Live client disconnected")
}

// Serve delivers queued broadcasts until ctx is done, then disconnects every
// client. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			closed := h.closeAllClients()
			h.log.Info().
				Str("component", "live-hub").
				Int("clients_closed", closed).
				Msg("Live hub stopped")
			return ctx.Err()
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// sortedClients must be called with mu held. Clients are ordered by id so
// fan-out order is stable.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			metrics.LiveMessagesDropped.WithLabelValues("client_slow").Inc()
			h.log.Warn().Uint64("client_id", c.id).Msg("Live client too slow, disconnecting")
		}
	}
	metrics.LiveClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.LiveClients.Set(0)
	return len(clients)
}

// BroadcastKillmail queues a summary of km for every client. It never blocks.
func (h *Hub) BroadcastKillmail(km *models.Killmail, decision models.Decision) {
	if km == nil {
		return
	}
	msg := Message{Type: MessageTypeKillmail, Data: SummaryOf(km, decision)}

	select {
	case h.broadcast <- msg:
	default:
		metrics.LiveMessagesDropped.WithLabelValues("hub_full").Inc()
		h.log.Warn().Int64("killmail_id", km.ID).Msg("Live broadcast buffer full, dropping killmail")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// String implements fmt.Stringer for suture logs.
func (h *Hub) String() string {
	return "live-hub"
}
