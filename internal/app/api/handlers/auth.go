package handlers

import (
	"errors"
	"net/http"

	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type setPasswordRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// @Summary      Register member
// @Description  Creates a member account with a password and returns the new profile.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body accounts.RegisterRequest true "Registration payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/auth/register [post]
func ApiRegister(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req accounts.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		u, err := svc.Register(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, accounts.ErrDuplicateUser) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Login
// @Description  Authenticates a user and returns a bearer token. Admin-created accounts must set a password first.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body handlers.loginRequest true "Credentials"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/auth/login [post]
func ApiLogin(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, accounts.ErrPasswordNotSet):
				c.JSON(http.StatusOK, response.OKT(&accounts.AuthResult{MustSetPassword: true}))
			case errors.Is(err, accounts.ErrBadCredentials), errors.Is(err, accounts.ErrAccountInactive):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Set initial password
// @Description  Completes an admin-created account by setting its first password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body handlers.setPasswordRequest true "Username and new password"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/auth/set_password [post]
func ApiSetPassword(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.SetInitialPassword(c.Request.Context(), req.Username, req.Password); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "password set"}))
	}
}

func RegisterAuthRoutes(r gin.IRouter, svc *accounts.Service) {
	r.POST("/register", ApiRegister(svc))
	r.POST("/login", ApiLogin(svc))
	r.POST("/set_password", ApiSetPassword(svc))
}
