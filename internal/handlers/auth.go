package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/auth"
	"resale-admin/internal/ratelimit"
)

// AuthHandler handles login and session lookups
type AuthHandler struct {
	gate    auth.Gate
	limiter *ratelimit.Limiter
}

// NewAuthHandler creates a new auth handler. limiter may be nil.
func NewAuthHandler(gate auth.Gate, limiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{gate: gate, limiter: limiter}
}

type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Login exchanges the PIN for a session token
func (h *AuthHandler) Login(c *gin.Context) {
	client := c.ClientIP()
	if h.limiter != nil && !h.limiter.Allow(client) {
		log.Printf("Auth: login rate limited for %s", client)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	session, err := h.gate.Authenticate(c.Request.Context(), req.PIN)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.limiter != nil {
		h.limiter.Forget(client)
	}

	c.JSON(http.StatusOK, session)
}

// Session returns the session of the bearer token
func (h *AuthHandler) Session(c *gin.Context) {
	s, ok := h.gate.CurrentSession(auth.BearerToken(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
		return
	}
	out := *s
	out.Token = ""
	c.JSON(http.StatusOK, out)
}
