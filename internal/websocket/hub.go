// internal/websocket/hub.go
package websocket

import (
	"context"
	"errors"
	"sync"

	"obcampaign-service/internal/domain/campaign"
	wstypes "obcampaign-service/internal/domain/websocket"
	"obcampaign-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("unauthorized")

// TokenVerifier validates operator access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

type Hub struct {
	// Registered clients by operator id
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// done is closed once Run has returned.
	done     chan struct{}
	doneOnce sync.Once

	verifier TokenVerifier
	logger   *zap.Logger
}

type BroadcastMessage struct {
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

// NewHub creates a hub. A nil verifier admits every connection as an
// anonymous admin.
func NewHub(verifier TokenVerifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		verifier:   verifier,
		logger:     logger,
	}
}

// AuthenticateClient validates the token presented on upgrade.
func (h *Hub) AuthenticateClient(token string) (*ClientAuth, error) {
	if h.verifier == nil {
		return &ClientAuth{OperatorID: "anonymous", Roles: []string{jwt.RoleAdmin}}, nil
	}
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := h.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}

	return &ClientAuth{
		OperatorID: claims.Identity(),
		SessionID:  claims.ID,
		Roles:      claims.Roles,
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.doneOnce.Do(func() { close(h.done) })
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register hands client to the running hub. It reports false once the hub
// has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave removes client from the running hub, or returns at once after
// shutdown.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyCampaignChange queues a campaign event for every client on the
// campaigns channel. Events are dropped when the queue is full.
func (h *Hub) NotifyCampaignChange(change *campaign.Change) {
	msg := wstypes.NewMessage(wstypes.EventType(change.Kind), change)
	select {
	case h.broadcast <- &BroadcastMessage{Channel: wstypes.ChannelCampaigns, Message: msg}:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("kind", string(change.Kind)),
			zap.String("uuid", change.UUID),
		)
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	data, err := msg.Message.ToJSON()
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.enqueue(data)
			}
		}
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.operatorID] == nil {
		h.clients[client.operatorID] = make(map[*Client]bool)
	}
	h.clients[client.operatorID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("operator", client.operatorID),
		zap.String("session", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"operator_id": client.operatorID,
		"session_id":  client.sessionID,
		"roles":       client.roles,
		"channels":    []wstypes.ChannelType{wstypes.ChannelCampaigns},
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.operatorID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.operatorID)
	}

	h.logger.Info("websocket client disconnected",
		zap.String("operator", client.operatorID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
