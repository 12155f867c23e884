package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
	"github.com/crosswalk-games/pointbridge/service"
)

// Handlers contains HTTP handlers for the signer API endpoints
type Handlers struct {
	verifier  *service.VerifierService
	signer    *service.SignerService
	tokenizer ports.SessionTokenizer
	logger    *zap.Logger
}

// NewHandlers creates new API handlers. The tokenizer is optional; without
// it verify-signature responses omit the session token.
func NewHandlers(verifier *service.VerifierService, signer *service.SignerService, tokenizer ports.SessionTokenizer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		verifier:  verifier,
		signer:    signer,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

type verifySignatureRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
}

type signActionRequest struct {
	WalletAddress string `json:"walletAddress"`
	Action        string `json:"action"`
	Amount        int64  `json:"amount"`
	CurrentNonce  int64  `json:"currentNonce"`
	AuthSignature string `json:"authSignature"`
	AuthMessage   string `json:"authMessage"`
	AuthTimestamp int64  `json:"authTimestamp"`
}

// VerifySignature handles POST /api/verify-signature
func (h *Handlers) VerifySignature(c *gin.Context) {
	if !requireJSON(c) {
		return
	}

	var req verifySignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WalletAddress == "" || req.Signature == "" || req.Message == "" || req.Timestamp == 0 {
		failure(c, http.StatusBadRequest, "Missing required fields: walletAddress, signature, message, timestamp")
		return
	}

	assertion := core.AuthAssertion{
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Message:       req.Message,
		Timestamp:     req.Timestamp,
	}

	if err := h.verifier.Verify(assertion, core.WindowInteractive); err != nil {
		failure(c, statusForError(err), publicError(err))
		return
	}

	data := gin.H{
		"isValid":       true,
		"walletAddress": req.WalletAddress,
	}
	if h.tokenizer != nil {
		token, err := h.tokenizer.IssueSession(req.WalletAddress)
		if err != nil {
			h.logger.Warn("failed to issue session token", zap.Error(err))
		} else {
			data["sessionToken"] = token
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// SignAction handles POST /api/sign-action
func (h *Handlers) SignAction(c *gin.Context) {
	if !requireJSON(c) {
		return
	}

	var req signActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	approval, err := h.signer.SignAction(c.Request.Context(), core.ActionRequest{
		WalletAddress: req.WalletAddress,
		Action:        core.Action(req.Action),
		Amount:        req.Amount,
		CurrentNonce:  req.CurrentNonce,
		Auth: core.AuthAssertion{
			WalletAddress: req.WalletAddress,
			Signature:     req.AuthSignature,
			Message:       req.AuthMessage,
			Timestamp:     req.AuthTimestamp,
		},
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("sign-action failed", zap.Error(err))
		}
		failure(c, status, publicError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"signature": approval.Signature,
			"nextNonce": approval.NextNonce,
		},
	})
}

// Session handles GET /api/session. The wallet address is set by the
// session middleware.
func (h *Handlers) Session(c *gin.Context) {
	walletAddress, exists := c.Get("walletAddress")
	if !exists {
		failure(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"walletAddress": walletAddress},
	})
}

func requireJSON(c *gin.Context) bool {
	if !strings.Contains(c.ContentType(), "application/json") {
		failure(c, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}
	return true
}

func failure(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// statusForError maps domain errors to HTTP status codes: caller-fixable
// conditions are 400, configuration and unexpected faults are 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrExpiredAssertion),
		errors.Is(err, core.ErrFutureTimestamp),
		errors.Is(err, core.ErrMessageMismatch),
		errors.Is(err, core.ErrVerificationFailed),
		errors.Is(err, core.ErrInvalidWallet),
		errors.Is(err, core.ErrInvalidAction),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidNonce),
		errors.Is(err, core.ErrMissingAuthData),
		errors.Is(err, core.ErrAuthenticationFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicError is what the caller sees. Internal and configuration faults
// are opaque: they never reveal signer key presence or other details.
func publicError(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
