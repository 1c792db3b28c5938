package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/service"
)

// Handlers contains HTTP handlers for the auth and registry endpoints.
type Handlers struct {
	auth       *service.AuthService
	registry   *service.RegistryService
	reconciler *service.Reconciler
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(auth *service.AuthService, registry *service.RegistryService, reconciler *service.Reconciler) *Handlers {
	return &Handlers{
		auth:       auth,
		registry:   registry,
		reconciler: reconciler,
	}
}

// Nonce issues a sign-in challenge for an address. Re-requesting replaces the
// prior pending challenge.
func (h *Handlers) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.auth.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": challenge.Message,
		"nonce":   challenge.Nonce,
	})
}

// Verify checks a signed challenge and issues a session credential.
func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Message   string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Address, req.Message, req.Signature)
	if err != nil {
		status := http.StatusInternalServerError
		reason := "authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			status, reason = http.StatusBadRequest, "invalid address"
		case errors.Is(err, core.ErrChallengeNotFound):
			status, reason = http.StatusBadRequest, "challenge not found"
		case errors.Is(err, core.ErrChallengeExpired):
			status, reason = http.StatusBadRequest, "challenge expired"
		case errors.Is(err, core.ErrSignatureMismatch):
			status, reason = http.StatusUnauthorized, "signature mismatch"
		}

		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   session.Credential,
		"address": session.Address,
	})
}

// Refresh re-issues a credential for a still-valid one.
func (h *Handlers) Refresh(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.auth.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		status := http.StatusInternalServerError
		reason := "failed to refresh credential"

		switch {
		case errors.Is(err, core.ErrCredentialExpired):
			status, reason = http.StatusUnauthorized, "credential expired"
		case errors.Is(err, core.ErrCredentialInvalid):
			status, reason = http.StatusUnauthorized, "credential invalid"
		}

		c.JSON(status, gin.H{"error": reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   session.Credential,
		"address": session.Address,
	})
}

// Logout denylists a credential.
func (h *Handlers) Logout(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, core.ErrCredentialInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credential invalid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the identity bound to the presented credential.
func (h *Handlers) Me(c *gin.Context) {
	session := SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"expires_at": session.ExpiresAt.Unix(),
	})
}

// GetReport is the open read path: derives the registry key for an address
// and returns its attestation, 404 when none exists.
func (h *Handlers) GetReport(c *gin.Context) {
	address := c.Param("address")

	report, ok, err := h.reconciler.Lookup(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
		return
	}

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attestation"})
		return
	}

	c.JSON(http.StatusOK, report)
}

type storeReportRequest struct {
	Address        string `json:"address" binding:"required"`
	RiskScore      uint16 `json:"risk_score"`
	ContentPointer string `json:"content_pointer" binding:"required"`
	Timestamp      uint64 `json:"timestamp" binding:"required"`
}

func (r storeReportRequest) toRecord() (core.RegistryKey, core.RiskReport, error) {
	key, err := core.DeriveKey(r.Address)
	if err != nil {
		return core.RegistryKey{}, core.RiskReport{}, err
	}
	// The wire type is wider than uint8 so an out-of-range score reaches the
	// service's range check instead of wrapping during decode.
	if r.RiskScore > 0xff {
		return core.RegistryKey{}, core.RiskReport{}, core.ErrScoreOutOfRange
	}
	return key, core.RiskReport{
		Score:          uint8(r.RiskScore),
		ContentPointer: r.ContentPointer,
		Timestamp:      r.Timestamp,
	}, nil
}

func writeErrorStatus(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrRoleUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "caller lacks updater role"})
	case errors.Is(err, core.ErrScoreOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "risk score exceeds 100"})
	case errors.Is(err, core.ErrZeroTimestamp):
		c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be non-zero"})
	case errors.Is(err, core.ErrArrayLengthMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "array lengths differ"})
	case errors.Is(err, core.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store report"})
	}
}

// StoreReport writes a single attestation. The caller's address comes from
// the bearer credential; the role check happens in the registry service.
func (h *Handlers) StoreReport(c *gin.Context) {
	session := SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	var req storeReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	key, report, err := req.toRecord()
	if err != nil {
		writeErrorStatus(c, err)
		return
	}

	if err := h.registry.StoreReport(c.Request.Context(), session.Address, key, report); err != nil {
		writeErrorStatus(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": key.Hex()})
}

// StoreReportsBatch writes several attestations atomically.
func (h *Handlers) StoreReportsBatch(c *gin.Context) {
	session := SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	// Parallel arrays mirror the contract surface; a length mismatch is the
	// caller's error, reported before anything is written.
	var req struct {
		Addresses       []string `json:"addresses" binding:"required"`
		RiskScores      []uint16 `json:"risk_scores" binding:"required"`
		ContentPointers []string `json:"content_pointers" binding:"required"`
		Timestamps      []uint64 `json:"timestamps" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if len(req.RiskScores) != len(req.Addresses) ||
		len(req.ContentPointers) != len(req.Addresses) ||
		len(req.Timestamps) != len(req.Addresses) {
		writeErrorStatus(c, core.ErrArrayLengthMismatch)
		return
	}

	keys := make([]core.RegistryKey, len(req.Addresses))
	reports := make([]core.RiskReport, len(req.Addresses))
	for i := range req.Addresses {
		key, report, err := storeReportRequest{
			Address:        req.Addresses[i],
			RiskScore:      req.RiskScores[i],
			ContentPointer: req.ContentPointers[i],
			Timestamp:      req.Timestamps[i],
		}.toRecord()
		if err != nil {
			writeErrorStatus(c, err)
			return
		}
		keys[i] = key
		reports[i] = report
	}

	if err := h.registry.StoreReportsBatch(c.Request.Context(), session.Address, keys, reports); err != nil {
		writeErrorStatus(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": len(keys)})
}
