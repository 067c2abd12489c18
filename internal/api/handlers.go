package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/devZenta/SafeSend/internal/knock"
	"github.com/devZenta/SafeSend/internal/models"
)

/* ----------------------------------------------------------------
   DTO types
-----------------------------------------------------------------*/

type KnockValidation struct {
	From string `json:"from"`
	To   string `json:"to" binding:"required"`
}

type AdminLogin struct {
	Password string `json:"password" binding:"required"`
}

type TokenCreation struct {
	Pattern string `json:"pattern" binding:"required"`
}

/* ================================================================
   KNOCK VALIDATION
================================================================ */

func handleValidateKnockGet(a App, c *gin.Context) {
	to := c.Query("to")
	if to == "" {
		c.JSON(400, gin.H{"error": "Missing to parameter"})
		return
	}
	validateKnock(a, c, c.Param("token"), c.Query("from"), to, 201)
}

func handleValidateKnockPut(a App, c *gin.Context) {
	var in KnockValidation
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	validateKnock(a, c, c.Param("token"), in.From, in.To, 200)
}

func validateKnock(a App, c *gin.Context, token, from, to string, okStatus int) {
	err := a.Knock().Validate(c.Request.Context(), token, from, to)
	switch {
	case errors.Is(err, knock.ErrUnknownToken):
		c.JSON(404, gin.H{"error": "Knock not found"})
	case err != nil:
		a.Logger().Error("knock validation failed", "err", err)
		c.JSON(500, gin.H{"error": "Validation failed"})
	default:
		c.JSON(okStatus, gin.H{"message": "Knock validated"})
	}
}

/* ================================================================
   ADMIN AUTHENTICATION
================================================================ */

func handleLogin(a App, c *gin.Context) {
	var in AdminLogin
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	if err := a.Auth().CheckAdminPassword(in.Password); err != nil {
		c.JSON(401, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := a.Auth().GenerateToken()
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(200, gin.H{"token": token})
}

/* ================================================================
   ADMIN TOKEN HANDLERS
================================================================ */

// handleCreateToken issues a validated record directly, bypassing the
// knock flow.
func handleCreateToken(a App, c *gin.Context) {
	var in TokenCreation
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	token, err := knock.RandomToken(knock.TokenBytes)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate token"})
		return
	}

	rec := models.Record{
		Token:   token,
		Pattern: in.Pattern,
		Status:  models.StatusValidated,
	}
	if err := a.TokenStore().Set(c.Request.Context(), token, rec); err != nil {
		a.Logger().Error("admin token creation failed", "err", err)
		c.JSON(500, gin.H{"error": "Failed to store token"})
		return
	}

	c.JSON(200, gin.H{"token": token})
}

func handleGetToken(a App, c *gin.Context) {
	rec, ok := a.TokenStore().Get(c.Request.Context(), c.Param("token"))
	if !ok {
		c.JSON(404, gin.H{"error": "Token not found"})
		return
	}
	c.JSON(200, rec)
}
