package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/hub"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/middleware"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/service"
)

// GatewayHandler is the connection gateway: it upgrades sockets, resolves
// identities, and dispatches validated inbound events to the services. A
// connection without a valid credential gets a fresh anonymous identity
// scoped to its lifetime.
type GatewayHandler struct {
	upgrader  websocket.Upgrader
	hub       *hub.Hub
	verifier  *middleware.TokenVerifier
	presence  *service.PresenceService
	messaging *service.MessagingService
	auctions  *service.AuctionService
	log       *logrus.Entry
}

func NewGatewayHandler(h *hub.Hub, verifier *middleware.TokenVerifier, presence *service.PresenceService, messaging *service.MessagingService, auctions *service.AuctionService) *GatewayHandler {
	if h == nil || verifier == nil || presence == nil || messaging == nil || auctions == nil {
		panic("all dependencies must be non-nil for GatewayHandler")
	}
	return &GatewayHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins once the web frontends are enumerated.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:       h,
		verifier:  verifier,
		presence:  presence,
		messaging: messaging,
		auctions:  auctions,
		log:       logrus.WithField("component", "gateway"),
	}
}

// HandleConnection upgrades the request and attaches the connection.
// Credentials ride the Authorization header or a token query parameter
// (browsers cannot set headers on websocket dials).
func (g *GatewayHandler) HandleConnection(c *gin.Context) {
	identity := g.resolveIdentity(c)

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.WithError(err).Error("Failed to upgrade connection")
		return
	}

	client := hub.NewClient(g.hub, conn, identity, g)
	g.hub.Register(client)

	if !identity.Anonymous {
		// Per-identity room lets any component target this identity
		// without knowing its connection topology.
		g.hub.Join(client, identity.UserRoom())
		g.presence.HandleConnect(context.Background(), identity)
	}

	g.log.WithFields(logrus.Fields{
		"conn_id":   client.ID(),
		"identity":  identity.ID,
		"anonymous": identity.Anonymous,
	}).Info("Connection established")

	client.Run()
}

func (g *GatewayHandler) resolveIdentity(c *gin.Context) domain.Identity {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		if bearer, err := middleware.ExtractBearer(c.Request); err == nil {
			tokenStr = bearer
		}
	}
	if tokenStr == "" {
		return domain.NewAnonymousIdentity()
	}
	identity, err := g.verifier.Verify(tokenStr)
	if err != nil {
		g.log.WithError(err).Warn("Invalid credential on connect, treating as anonymous")
		return domain.NewAnonymousIdentity()
	}
	return identity
}

// HandleDisconnect tears down everything the connection held: its room
// memberships go with it, and if it was the identity's last connection,
// presence flips to offline immediately.
func (g *GatewayHandler) HandleDisconnect(c *hub.Client) {
	remaining := g.hub.Unregister(c)
	g.presence.HandleDisconnect(context.Background(), c.Identity(), remaining)
}

type validatable interface {
	Validate() error
}

// HandleFrame validates one inbound event and dispatches it. A failure here
// is isolated to this connection: errors go back as protocol events, never
// panics or teardown.
func (g *GatewayHandler) HandleFrame(c *hub.Client, frame []byte) {
	ctx := context.Background()

	// Activity on any connection keeps the identity's presence fresh.
	g.presence.Touch(ctx, c.Identity())

	var ev domain.Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		g.sendError(c, domain.ReasonInvalidPayload, "malformed event envelope")
		return
	}

	switch ev.Type {
	case domain.EvRoomJoin:
		var p domain.RoomPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.handleRoomJoin(c, p)
	case domain.EvRoomLeave:
		var p domain.RoomPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.hub.Leave(c, p.Key())
	case domain.EvMessageSend:
		var p domain.SendMessagePayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.handleMessageSend(ctx, c, p)
	case domain.EvMessageTyping:
		var p domain.TypingPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		if err := g.messaging.Typing(ctx, c.Identity(), p); err != nil {
			g.sendError(c, service.ReasonFor(err), err.Error())
		}
	case domain.EvMessageRead:
		var p domain.ReadPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		if _, err := g.messaging.MarkRead(ctx, c.Identity(), p.MessageID); err != nil {
			g.sendError(c, service.ReasonFor(err), err.Error())
		}
	case domain.EvAuctionJoin:
		var p domain.AuctionJoinPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.handleAuctionJoin(ctx, c, p)
	case domain.EvAuctionLeave:
		var p domain.AuctionJoinPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.hub.Leave(c, domain.AuctionRoom(p.AuctionID))
	case domain.EvAuctionBid:
		var p domain.BidPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		g.handleBid(ctx, c, p)
	case domain.EvPresenceUpdate:
		var p domain.PresenceUpdatePayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		if err := g.presence.SetStatus(ctx, c.Identity(), p.Status); err != nil {
			g.sendError(c, service.ReasonFor(err), err.Error())
		}
	case domain.EvPresenceCheck:
		var p domain.PresenceCheckPayload
		if !g.decode(c, ev.Data, &p) {
			return
		}
		statuses := g.presence.GetStatuses(ctx, p.Identities)
		c.Send(domain.MustEvent(domain.EvPresenceStatus, domain.PresenceStatusPayload{Statuses: statuses}))
	default:
		g.sendError(c, domain.ReasonUnknownEvent, "unknown event type "+ev.Type)
	}
}

func (g *GatewayHandler) decode(c *hub.Client, data json.RawMessage, dst validatable) bool {
	if len(data) == 0 {
		g.sendError(c, domain.ReasonInvalidPayload, "missing event payload")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		g.sendError(c, domain.ReasonInvalidPayload, "malformed event payload")
		return false
	}
	if err := dst.Validate(); err != nil {
		g.sendError(c, domain.ReasonInvalidPayload, err.Error())
		return false
	}
	return true
}

func (g *GatewayHandler) handleRoomJoin(c *hub.Client, p domain.RoomPayload) {
	identity := c.Identity()
	switch p.Kind {
	case domain.RoomAgent:
		if !identity.HasCapability(domain.CapabilityAgent) {
			g.sendError(c, domain.ReasonNotAuthorized, "agent rooms require the agent capability")
			return
		}
	case domain.RoomUser:
		// Identity rooms carry private traffic; only their owner joins.
		if identity.ID != p.ID {
			g.sendError(c, domain.ReasonNotAuthorized, "cannot join another identity's room")
			return
		}
	}
	g.hub.Join(c, p.Key())
}

func (g *GatewayHandler) handleMessageSend(ctx context.Context, c *hub.Client, p domain.SendMessagePayload) {
	msg, err := g.messaging.Send(ctx, c.Identity(), p)
	if err != nil {
		g.sendError(c, service.ReasonFor(err), err.Error())
		return
	}
	// Direct acknowledgment only: other tabs of the sender do not see an
	// echo of their own message.
	c.Send(domain.MustEvent(domain.EvMessageSent, msg))
}

func (g *GatewayHandler) handleAuctionJoin(ctx context.Context, c *hub.Client, p domain.AuctionJoinPayload) {
	state, err := g.auctions.Get(ctx, p.AuctionID)
	if err != nil {
		g.sendError(c, service.ReasonFor(err), err.Error())
		return
	}
	g.hub.Join(c, domain.AuctionRoom(p.AuctionID))
	// New members get the authoritative state snapshot directly.
	c.Send(domain.MustEvent(domain.EvAuctionState, state))
}

func (g *GatewayHandler) handleBid(ctx context.Context, c *hub.Client, p domain.BidPayload) {
	outcome, err := g.auctions.PlaceBid(ctx, c.Identity(), p.AuctionID, p.Amount)
	if err != nil {
		// Rejections go to the bidder alone, with a machine-readable
		// reason; nothing is broadcast.
		c.Send(domain.MustEvent(domain.EvAuctionBidRejected, domain.BidRejectedPayload{
			AuctionID: p.AuctionID,
			Reason:    service.ReasonFor(err),
			Amount:    p.Amount,
		}))
		return
	}
	c.Send(domain.MustEvent(domain.EvAuctionBidAccepted, domain.NewBidPayload{
		State: *outcome.State,
		Bid:   outcome.Bid,
	}))
}

func (g *GatewayHandler) sendError(c *hub.Client, reason, detail string) {
	c.Send(domain.MustEvent(domain.EvError, domain.ErrorPayload{Reason: reason, Detail: detail}))
}
