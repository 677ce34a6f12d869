package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/hunt"
	"github.com/mediahunt/huntboard/internal/rotation"
)

// SectionResponse is the view model for one discovery section.
type SectionResponse struct {
	Section string              `json:"section"`
	Results []hunt.MediaSummary `json:"results"`
	Cached  bool                `json:"cached"`
}

// DiscoverHandler serves the discovery endpoints over the section loader and
// rotator.
type DiscoverHandler struct {
	loader  *discovery.Loader
	rotator *rotation.Rotator
}

// NewDiscoverHandler creates a handler over the given loader and rotator.
func NewDiscoverHandler(loader *discovery.Loader, rotator *rotation.Rotator) *DiscoverHandler {
	return &DiscoverHandler{loader: loader, rotator: rotator}
}

// Home handles GET /v0/discover/home: rotate to the next section, serve it,
// and warm the two sections that were not chosen.
func (h *DiscoverHandler) Home(c *gin.Context) {
	section := h.rotator.Next(c.Request.Context())

	payload, err := h.loader.LoadSection(c.Request.Context(), section)
	if err != nil {
		log.WithField("section", string(section)).Errorf("home discovery failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	h.loader.Warm(rotation.Others(section)...)

	c.JSON(http.StatusOK, sectionResponse(payload))
}

// Section handles GET /v0/discover/:section.
func (h *DiscoverHandler) Section(c *gin.Context) {
	section, ok := discovery.ParseSection(c.Param("section"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown section: " + c.Param("section")})
		return
	}

	payload, err := h.loader.LoadSection(c.Request.Context(), section)
	if err != nil {
		log.WithField("section", string(section)).Errorf("section discovery failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, sectionResponse(payload))
}

func sectionResponse(payload *discovery.SectionPayload) SectionResponse {
	results := payload.Results
	if results == nil {
		results = []hunt.MediaSummary{}
	}
	return SectionResponse{
		Section: string(payload.Section),
		Results: results,
		Cached:  payload.Cached,
	}
}
