package webserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
	"github.com/justbytes/solidity-casino/internal/payout"
	"github.com/justbytes/solidity-casino/internal/raffle"
	"github.com/justbytes/solidity-casino/internal/storage"
	"github.com/justbytes/solidity-casino/internal/vrf"
)

// Server exposes the raffle over HTTP: entries, the upkeep surface, round
// history and the websocket event stream.
type Server struct {
	raffle  *raffle.Raffle
	bank    *payout.Bank
	storage storage.Storage
	hub     *Hub
}

func NewServer(r *raffle.Raffle, bank *payout.Bank, st storage.Storage, hub *Hub) *Server {
	return &Server{
		raffle:  r,
		bank:    bank,
		storage: st,
		hub:     hub,
	}
}

func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.POST("/enter", s.Enter)
	router.GET("/status", s.Status)
	router.GET("/upkeep", s.CheckUpkeep)
	router.POST("/upkeep", s.PerformUpkeep)
	router.GET("/rounds", s.RecentRounds)
	router.GET("/accounts/:address", s.AccountBalance)
	router.POST("/accounts/:address/deposit", s.Deposit)
	router.POST("/admin/reopen", s.Reopen)
	router.GET("/ws", s.hub.Serve)
}

type enterRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

// Enter debits the entry payment from the caller's bank account and buys one
// ticket. A rejected entry refunds the debit.
func (s *Server) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := ton.ParseAccountID(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address: " + err.Error()})
		return
	}

	amount := tlb.Grams(req.Amount)
	if err := s.bank.Debit(address, amount); err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		return
	}

	if err := s.raffle.Enter(address, amount); err != nil {
		s.bank.Deposit(address, amount)

		switch {
		case errors.Is(err, raffle.ErrInsufficientPayment):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, raffle.ErrRoundNotOpen):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	snapshot := s.raffle.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":            snapshot.State.String(),
		"pool":             uint64(snapshot.Pool),
		"num_participants": snapshot.NumParticipants,
	})
}

func (s *Server) Status(c *gin.Context) {
	snapshot := s.raffle.Snapshot()

	resp := gin.H{
		"state":              snapshot.State.String(),
		"round":              snapshot.Round,
		"pool":               uint64(snapshot.Pool),
		"num_participants":   snapshot.NumParticipants,
		"last_round_at":      snapshot.LastRoundAt,
		"pending_request_id": snapshot.PendingRequestID,
	}
	if snapshot.HasWinner {
		resp["recent_winner"] = snapshot.RecentWinner.ToRaw()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CheckUpkeep(c *gin.Context) {
	needed, _ := s.raffle.CheckUpkeep()
	c.JSON(http.StatusOK, gin.H{"upkeep_needed": needed})
}

func (s *Server) PerformUpkeep(c *gin.Context) {
	requestID, err := s.raffle.PerformUpkeep()
	if err != nil {
		var notNeeded *raffle.UpkeepNotNeededError
		switch {
		case errors.As(err, &notNeeded):
			c.JSON(http.StatusConflict, gin.H{
				"error":            err.Error(),
				"state":            notNeeded.State.String(),
				"balance":          uint64(notNeeded.Balance),
				"num_participants": notNeeded.NumParticipants,
			})
		case errors.Is(err, vrf.ErrRequestRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": requestID})
}

func (s *Server) RecentRounds(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	rounds, err := s.storage.GetRecentRounds(limit)
	if err != nil {
		logger.Error("webserver: failed to load rounds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rounds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

func (s *Server) AccountBalance(c *gin.Context) {
	address, err := ton.ParseAccountID(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address.ToRaw(),
		"balance": uint64(s.bank.BalanceOf(address)),
	})
}

type depositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (s *Server) Deposit(c *gin.Context) {
	address, err := ton.ParseAccountID(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address: " + err.Error()})
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.bank.Deposit(address, tlb.Grams(req.Amount))
	c.JSON(http.StatusOK, gin.H{
		"address": address.ToRaw(),
		"balance": uint64(s.bank.BalanceOf(address)),
	})
}

// Reopen is the operator path out of a round stuck waiting on the oracle.
func (s *Server) Reopen(c *gin.Context) {
	if err := s.raffle.Reopen(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	snapshot := s.raffle.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":            snapshot.State.String(),
		"num_participants": snapshot.NumParticipants,
		"pool":             uint64(snapshot.Pool),
	})
}
