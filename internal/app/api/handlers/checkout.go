package handlers

import (
	"errors"
	"net/http"

	"github.com/trainwise/backend/internal/app/api/middleware"
	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/checkout"
	"github.com/trainwise/backend/pkg/response"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type stageMembershipRequest struct {
	PlanID  string               `json:"plan_id" binding:"required"`
	Gateway types.PaymentGateway `json:"gateway" binding:"required"`
}

type stageBookingRequest struct {
	TrainerID      string               `json:"trainer_id" binding:"required"`
	StartDate      string               `json:"start_date" binding:"required"`
	StartTime      string               `json:"start_time" binding:"required"`
	DurationHours  int                  `json:"duration_hours" binding:"required"`
	DurationMonths int                  `json:"duration_months" binding:"required"`
	Gateway        types.PaymentGateway `json:"gateway" binding:"required"`
}

type retryCheckoutRequest struct {
	Gateway types.PaymentGateway `json:"gateway" binding:"required"`
}

// @Summary      Start membership checkout
// @Description  Prices the plan, places the new period and stages it for payment. No membership exists until the gateway confirms.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body handlers.stageMembershipRequest true "Plan and gateway"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout/membership [post]
func ApiStageMembership(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stageMembershipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !req.Gateway.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid gateway"))
			return
		}
		res, err := engine.StageMembership(c.Request.Context(), middleware.AuthUserID(c), req.PlanID, req.Gateway)
		if err != nil {
			if errors.Is(err, checkout.ErrDemoForbidden) {
				c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Start private class checkout
// @Description  Validates the slot, prices the class and stages it for payment. The slot is only committed after a verified callback.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body handlers.stageBookingRequest true "Booking details and gateway"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout/booking [post]
func ApiStageBooking(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stageBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !req.Gateway.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid gateway"))
			return
		}
		startDate, err := tool.ParseDate(req.StartDate)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := engine.StageBooking(c.Request.Context(), middleware.AuthUserID(c), &booking.Request{
			TrainerID:      req.TrainerID,
			StartDate:      startDate,
			StartTime:      req.StartTime,
			DurationHours:  req.DurationHours,
			DurationMonths: req.DurationMonths,
		}, req.Gateway)
		if err != nil {
			switch {
			case errors.Is(err, booking.ErrSlotConflict):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, checkout.ErrDemoForbidden):
				c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Payment success callback
// @Description  Provider-facing callback. Verifies the payment server-side and commits the staged purchase atomically. Replays are no-ops.
// @Tags         Checkout
// @Produce      json
// @Param        uid path string true "Transaction id"
// @Success      200  {object}  handlers.RespOK
// @Router       /callback/success/{uid} [get]
func ApiCallbackSuccess(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.Param("uid")
		params := map[string]string{}
		for k, vs := range c.Request.URL.Query() {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
		res, err := engine.ConfirmCallback(c.Request.Context(), uid, params)
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrAlreadyProcessed):
				c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "already processed"}))
			case errors.Is(err, checkout.ErrUnknownTransaction),
				errors.Is(err, checkout.ErrPaymentFailed),
				errors.Is(err, checkout.ErrPaymentPending),
				errors.Is(err, booking.ErrSlotConflict):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Payment failure callback
// @Description  Provider-facing callback for failed or abandoned payments. Discards the staged purchase; nothing is committed.
// @Tags         Checkout
// @Produce      json
// @Param        uid path string true "Transaction id"
// @Success      200  {object}  handlers.RespOK
// @Router       /callback/failure/{uid} [get]
func ApiCallbackFailure(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := engine.AbortCallback(c.Request.Context(), c.Param("uid")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "aborted"}))
	}
}

// @Summary      Demo commit
// @Description  Commits a staged purchase without gateway verification. Disabled in production.
// @Tags         Checkout
// @Produce      json
// @Param        uid path string true "Transaction id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout/demo/{uid} [post]
func ApiDemoCommit(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := engine.DemoCommit(c.Request.Context(), c.Param("uid"))
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrDemoForbidden):
				c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, checkout.ErrAlreadyProcessed), errors.Is(err, checkout.ErrUnknownTransaction):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Retry a pending payment
// @Description  Re-initiates gateway checkout for an existing pending payment. The payment keeps its transaction id.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        payment_id path string true "Payment id"
// @Param        request body handlers.retryCheckoutRequest true "Gateway"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/{payment_id}/retry [post]
func ApiRetryCheckout(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req retryCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !req.Gateway.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid gateway"))
			return
		}
		res, err := engine.RetryCheckout(c.Request.Context(), middleware.AuthUserID(c), c.Param("payment_id"), req.Gateway)
		if err != nil {
			if errors.Is(err, checkout.ErrDemoForbidden) {
				c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Cancel a pending payment
// @Description  Marks a pending payment cancelled and deactivates whatever it was paying for. The provider is never contacted.
// @Tags         Checkout
// @Produce      json
// @Param        payment_id path string true "Payment id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/{payment_id}/cancel [post]
func ApiCancelPendingPayment(engine checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := engine.CancelPendingPayment(c.Request.Context(), middleware.AuthUserID(c), c.Param("payment_id")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "cancelled"}))
	}
}

// RegisterCallbackRoutes wires the provider-facing redirects. They carry no
// auth: the transaction id is the capability and verification is
// server-to-server.
func RegisterCallbackRoutes(r gin.IRouter, engine checkout.Engine) {
	r.GET("/callback/success/:uid", ApiCallbackSuccess(engine))
	r.POST("/callback/success/:uid", ApiCallbackSuccess(engine))
	r.GET("/callback/failure/:uid", ApiCallbackFailure(engine))
	r.POST("/callback/failure/:uid", ApiCallbackFailure(engine))
}

func RegisterCheckoutRoutes(r gin.IRouter, engine checkout.Engine) {
	r.POST("/checkout/membership", ApiStageMembership(engine))
	r.POST("/checkout/booking", ApiStageBooking(engine))
	r.POST("/checkout/demo/:uid", ApiDemoCommit(engine))
	r.POST("/payments/:payment_id/retry", ApiRetryCheckout(engine))
	r.POST("/payments/:payment_id/cancel", ApiCancelPendingPayment(engine))
}
