package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garagehub/database/repository"
	userRepo "garagehub/database/repository/user"
	"garagehub/middleware"
	"garagehub/services/loyalty"
	"garagehub/utils"
)

// LoyaltyHandler exposes the points ledger over HTTP.
type LoyaltyHandler struct {
	Svc    loyalty.LoyaltyService
	Users  userRepo.UserRepository
	Logger *zap.Logger
}

func NewLoyaltyHandler(svc loyalty.LoyaltyService, users userRepo.UserRepository, logger *zap.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{Svc: svc, Users: users, Logger: logger}
}

// Balance handles GET /api/loyalty/balance. The cached balance on the user
// record is the fast path; ?verify=true derives it from the ledger.
func (h *LoyaltyHandler) Balance(c *gin.Context) {
	userID := middleware.ActingUserID(c)

	if c.Query("verify") == "true" {
		balance, err := h.Svc.Balance(c.Request.Context(), userID)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "balance lookup failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance, "source": "ledger"})
		return
	}

	user, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "balance lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": user.LoyaltyPoints, "source": "cache"})
}

// History handles GET /api/loyalty/history.
func (h *LoyaltyHandler) History(c *gin.Context) {
	txs, err := h.Svc.History(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "history lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, txs)
}

type adjustInput struct {
	UserID string `json:"userId" binding:"required"`
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// Adjust handles POST /api/loyalty/adjust. Staff only.
func (h *LoyaltyHandler) Adjust(c *gin.Context) {
	actor, err := h.Users.GetByID(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil || !actor.Privileged() {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "staff role required")
		return
	}

	var input adjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Svc.AdjustManually(c.Request.Context(), input.UserID, input.Delta, input.Reason, actor.ID); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			utils.JSONError(c, http.StatusUnprocessableEntity, "insufficient balance", "the adjustment would drive the balance below zero")
			return
		}
		h.Logger.Error("manual adjustment failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "adjustment failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}

type redeemInput struct {
	Cost     int64  `json:"cost" binding:"required"`
	RewardID string `json:"rewardId" binding:"required"`
}

// Redeem handles POST /api/loyalty/redeem.
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	var input redeemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Svc.Redeem(c.Request.Context(), middleware.ActingUserID(c), input.Cost, input.RewardID); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			utils.JSONError(c, http.StatusUnprocessableEntity, "insufficient balance", "not enough points for this reward")
			return
		}
		h.Logger.Error("redemption failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "redemption failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "redeemed"})
}
