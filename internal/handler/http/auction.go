package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/middleware"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/service"
)

// AuctionHandler exposes the REST side of the coordinator: agents open
// auctions here; everyone can read the current state. Bidding itself is
// websocket-only.
type AuctionHandler struct {
	auctions *service.AuctionService
}

func NewAuctionHandler(auctions *service.AuctionService) *AuctionHandler {
	if auctions == nil {
		panic("AuctionService cannot be nil for AuctionHandler")
	}
	return &AuctionHandler{auctions: auctions}
}

type openAuctionRequest struct {
	AuctionID        string `json:"auction_id" binding:"required"`
	PropertyID       string `json:"property_id" binding:"required"`
	StartPrice       int64  `json:"start_price"`
	MinIncrement     int64  `json:"min_increment" binding:"required"`
	StartTime        string `json:"start_time" binding:"required"` // RFC3339
	EndTime          string `json:"end_time" binding:"required"`   // RFC3339
	AntiSnipeSeconds int64  `json:"anti_snipe_seconds"`
}

func (h *AuctionHandler) OpenAuction(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req openAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_time, want RFC3339"})
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_time, want RFC3339"})
		return
	}

	state, err := h.auctions.Open(c.Request.Context(), identity, service.OpenAuctionParams{
		AuctionID:       req.AuctionID,
		PropertyID:      req.PropertyID,
		StartPrice:      req.StartPrice,
		MinIncrement:    req.MinIncrement,
		StartTime:       startTime,
		EndTime:         endTime,
		AntiSnipeWindow: time.Duration(req.AntiSnipeSeconds) * time.Second,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "Opening auctions requires the agent capability"})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction parameters"})
		case errors.Is(err, service.ErrAuctionExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Auction already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open auction"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"auction": state})
}

func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auctionID := c.Param("auctionId")
	state, err := h.auctions.Get(c.Request.Context(), auctionID)
	if err != nil {
		if errors.Is(err, service.ErrAuctionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Auction not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read auction"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"auction": state})
}
