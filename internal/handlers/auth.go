package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly/internal/middleware"
	"linkly/internal/services"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// RefreshRequest is shared by refresh and logout. A missing token is reported
// by the service, not by validation.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func bindRefreshRequest(c *gin.Context) (RefreshRequest, bool) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondValidationError(c, err)
		return req, false
	}
	return req, true
}

func Register(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := svc.Register(c.Request.Context(), services.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, res)
	}
}

func Login(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := svc.Login(c.Request.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func Refresh(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRefreshRequest(c)
		if !ok {
			return
		}

		accessToken, err := svc.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
	}
}

func Logout(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRefreshRequest(c)
		if !ok {
			return
		}

		if err := svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}

func LogoutAll(svc *services.AuthService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		if err := svc.LogoutAll(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out from all sessions"})
	}
}

func GetProfile(svc *services.AuthService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		profile, err := svc.GetProfile(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": profile})
	}
}

func GetProfileStats(svc *services.AuthService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		profile, err := svc.GetProfileWithStats(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": profile})
	}
}
