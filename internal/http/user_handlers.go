package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acquisitions-api/internal/service"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"users":   resp,
		"count":   len(resp),
	})
}

func (h *Handler) getUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"user":    userToResponse(*user),
	})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req service.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError())
		return
	}

	actor := identityFrom(c)
	if actor == nil {
		respondError(c, http.StatusUnauthorized, "Authentication required", codeUnauthorized)
		return
	}

	user, err := h.users.Update(c.Request.Context(), *actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    userToResponse(*user),
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"user":    userToResponse(*user),
	})
}
