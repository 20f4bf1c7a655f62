package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/service/owners"
)

type createOwnerResponse struct {
	Owner  models.Owner `json:"owner"`
	APIKey string       `json:"apiKey"`
}

// CreateOwner provisions a driver. The API key is only returned here.
func (h *Handler) CreateOwner(c *gin.Context) {
	var in owners.OwnerInput
	if !h.bind(c, &in) {
		return
	}
	owner, key, err := h.svc.Owners.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, createOwnerResponse{Owner: owner, APIKey: key})
}

// Me returns the authenticated owner.
func (h *Handler) Me(c *gin.Context) {
	owner, err := h.svc.Owners.Get(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

// UpdateMe patches the profile and preferences.
func (h *Handler) UpdateMe(c *gin.Context) {
	var in owners.ProfileInput
	if !h.bind(c, &in) {
		return
	}
	owner, err := h.svc.Owners.UpdateProfile(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}
