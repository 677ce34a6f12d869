// Package handlers exposes the JSON endpoints the dashboard front end
// consumes. Every response body is a typed view model; handlers never render
// markup or leak internal types.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/auth"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/store"
)

// ErrorResponse is the error payload shared by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LinkStartResponse is the view model for a freshly started linking session.
type LinkStartResponse struct {
	Success         bool   `json:"success"`
	SessionID       string `json:"session_id"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

// LinkStatusResponse is the view model for a session status poll.
type LinkStatusResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// LinkHandler serves the account-linking endpoints over the device-flow
// authorizer.
type LinkHandler struct {
	authorizer *deviceflow.Authorizer
	providers  map[string]deviceflow.Provider
	state      store.StateStore
}

// NewLinkHandler creates a handler for the given provider set.
func NewLinkHandler(authorizer *deviceflow.Authorizer, providers map[string]deviceflow.Provider, state store.StateStore) *LinkHandler {
	return &LinkHandler{authorizer: authorizer, providers: providers, state: state}
}

// Start handles POST /v0/link/:provider/start.
func (h *LinkHandler) Start(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + c.Param("provider")})
		return
	}

	session, err := h.authorizer.Begin(c.Request.Context(), provider)
	if err != nil {
		log.WithField("provider", provider.Name()).Errorf("failed to start linking session: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	code := session.Code()
	c.JSON(http.StatusOK, LinkStartResponse{
		Success:         true,
		SessionID:       session.ID,
		UserCode:        code.UserCode,
		VerificationURL: code.VerificationURL,
		Interval:        int(code.Interval / time.Second),
		ExpiresIn:       int(time.Until(code.ExpiresAt) / time.Second),
	})
}

// Status handles GET /v0/link/:provider/status. A session that reached
// AUTHORIZED is reported once and then released; afterwards the persisted
// credential answers for it.
func (h *LinkHandler) Status(c *gin.Context) {
	name := c.Param("provider")
	if _, ok := h.providers[name]; !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + name})
		return
	}

	session := h.authorizer.Session(name)
	if session == nil {
		if _, linked := auth.LoadCredential(c.Request.Context(), h.state, name); linked {
			c.JSON(http.StatusOK, LinkStatusResponse{State: deviceflow.StateAuthorized.String()})
			return
		}
		c.JSON(http.StatusOK, LinkStatusResponse{State: "none"})
		return
	}

	state := session.State()
	resp := LinkStatusResponse{State: state.String()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	if state.Terminal() {
		h.authorizer.Clear(name, session.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel handles DELETE /v0/link/:provider. Canceling an absent or already
// terminal session is a no-op.
func (h *LinkHandler) Cancel(c *gin.Context) {
	name := c.Param("provider")
	if _, ok := h.providers[name]; !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + name})
		return
	}

	if session := h.authorizer.Session(name); session != nil {
		session.Cancel()
		h.authorizer.Clear(name, session.ID)
		log.WithFields(log.Fields{"provider": name, "session": session.ID}).Info("linking session canceled")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
