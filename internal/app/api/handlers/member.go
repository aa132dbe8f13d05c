package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/trainwise/backend/internal/app/api/middleware"
	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/membership"
	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/response"
	"github.com/trainwise/backend/pkg/tool"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type upsertWeightRequest struct {
	Date     string  `json:"date"`
	WeightKG float64 `json:"weight_kg" binding:"required"`
	Notes    *string `json:"notes"`
}

// @Summary      My memberships
// @Description  All of the member's subscriptions plus days left on the running one.
// @Tags         Member
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/memberships [get]
func ApiMyMemberships(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := svc.Overview(c.Request.Context(), middleware.AuthUserID(c), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(overview))
	}
}

// @Summary      Cancel a subscription
// @Tags         Member
// @Produce      json
// @Param        subscription_id path string true "Subscription id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/memberships/{subscription_id}/cancel [post]
func ApiCancelSubscription(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Cancel(c.Request.Context(), middleware.AuthUserID(c), c.Param("subscription_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "cancelled"}))
	}
}

// @Summary      My private classes
// @Tags         Member
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/bookings [get]
func ApiMyBookings(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := svc.ListForMember(c.Request.Context(), middleware.AuthUserID(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(bookings))
	}
}

// @Summary      Cancel a private class
// @Tags         Member
// @Produce      json
// @Param        booking_id path string true "Booking id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/bookings/{booking_id}/cancel [post]
func ApiCancelBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Cancel(c.Request.Context(), middleware.AuthUserID(c), c.Param("booking_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "cancelled"}))
	}
}

// @Summary      My payments
// @Tags         Member
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/payments [get]
func ApiMyPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := middleware.AuthUserID(c)
		var payments []*models.Payment
		err := db.WithContext(c.Request.Context()).
			Preload("Subscription").Preload("Booking").
			Joins("LEFT JOIN member_subscription ON member_subscription.id = payment.subscription_id").
			Joins("LEFT JOIN private_class ON private_class.id = payment.booking_id").
			Where("member_subscription.member_id = ? OR private_class.member_id = ?", memberID, memberID).
			Order("payment.created_at desc").
			Find(&payments).Error
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(payments))
	}
}

// @Summary      My profile
// @Tags         Member
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me [get]
func ApiMyProfile(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.User(c.Request.Context(), middleware.AuthUserID(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Record weight
// @Description  Upserts the member's weight entry for a day; one entry per day.
// @Tags         Member
// @Accept       json
// @Produce      json
// @Param        request body handlers.upsertWeightRequest true "Weight entry"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/weight [post]
func ApiUpsertWeight(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req upsertWeightRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		date := time.Now()
		if req.Date != "" {
			var err error
			if date, err = tool.ParseDate(req.Date); err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
		}
		entry, err := svc.UpsertWeight(c.Request.Context(), middleware.AuthUserID(c), date, req.WeightKG, req.Notes)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(entry))
	}
}

// @Summary      Delete weight entry
// @Tags         Member
// @Produce      json
// @Param        entry_id path string true "Weight entry id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/weight/{entry_id} [delete]
func ApiDeleteWeight(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteWeight(c.Request.Context(), middleware.AuthUserID(c), c.Param("entry_id")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "deleted"}))
	}
}

// @Summary      Weight history
// @Description  Entries in an optional from/to range with first/latest/change/BMI stats.
// @Tags         Member
// @Produce      json
// @Param        from query string false "From date YYYY-MM-DD"
// @Param        to query string false "To date YYYY-MM-DD"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/weight [get]
func ApiWeightHistory(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var from, to time.Time
		if v := c.Query("from"); v != "" {
			t, err := tool.ParseDate(v)
			if err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			from = t
		}
		if v := c.Query("to"); v != "" {
			t, err := tool.ParseDate(v)
			if err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			to = t
		}
		stats, err := svc.WeightHistory(c.Request.Context(), middleware.AuthUserID(c), from, to)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

// @Summary      Weight chart series
// @Tags         Member
// @Produce      json
// @Param        days query int false "Days back (default 30)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/weight/chart [get]
func ApiWeightChart(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if v := c.Query("days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				days = n
			}
		}
		series, err := svc.WeightChart(c.Request.Context(), middleware.AuthUserID(c), days)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(series))
	}
}

func RegisterMemberRoutes(r gin.IRouter, acct *accounts.Service, memberships *membership.Service, bookings *booking.Service, db *gorm.DB) {
	r.GET("/me", ApiMyProfile(acct))
	r.GET("/me/memberships", ApiMyMemberships(memberships))
	r.POST("/me/memberships/:subscription_id/cancel", ApiCancelSubscription(memberships))
	r.GET("/me/bookings", ApiMyBookings(bookings))
	r.POST("/me/bookings/:booking_id/cancel", ApiCancelBooking(bookings))
	r.GET("/me/payments", ApiMyPayments(db))
	r.POST("/me/weight", ApiUpsertWeight(acct))
	r.GET("/me/weight", ApiWeightHistory(acct))
	r.DELETE("/me/weight/:entry_id", ApiDeleteWeight(acct))
	r.GET("/me/weight/chart", ApiWeightChart(acct))
}
