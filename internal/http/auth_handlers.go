package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acquisitions-api/internal/service"
)

func (h *Handler) signUp(c *gin.Context) {
	var req service.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError())
		return
	}

	res, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.cookies.Attach(c.Writer, res.Token)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    publicUser(res.User),
	})
}

func (h *Handler) signIn(c *gin.Context) {
	var req service.SignInInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError())
		return
	}

	res, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.cookies.Attach(c.Writer, res.Token)
	c.JSON(http.StatusOK, gin.H{
		"message": "User signed in successfully",
		"user":    publicUser(res.User),
	})
}

// signOut clears the session cookie whether or not one was presented.
func (h *Handler) signOut(c *gin.Context) {
	h.cookies.Detach(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "User signed out successfully"})
}
