package handlers

import (
	"net/http"
	"time"

	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/internal/app/service/membership"
	"github.com/trainwise/backend/internal/app/service/statistics"
	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/response"
	"github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// filtersWhere wraps a list of filters to a single clause.Expression
type filtersWhere struct{ filters []*types.CommonFilter }

func (w filtersWhere) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

var paymentSortColumns = map[string]string{
	"payment_date": "payment_date",
	"amount_paisa": "amount_paisa",
	"created_at":   "created_at",
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of all payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListPaymentsRequest true "List payments request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Size <= 0 || req.Size > 500 {
			req.Size = 100
		}
		sortBy, ok := paymentSortColumns[req.SortBy]
		if !ok {
			sortBy = "created_at"
		}
		desc := req.SortOrder != "asc"

		base := db.WithContext(c.Request.Context()).Model(&models.Payment{}).
			Where(clause.Where{Exprs: []clause.Expression{filtersWhere{filters: req.Filters}}})

		var total int64
		if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		var items []*models.Payment
		err := base.Session(&gorm.Session{}).
			Preload("Subscription").Preload("Booking").
			Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: desc}).
			Offset(req.From).Limit(req.Size).
			Find(&items).Error
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: total}))
	}
}

// @Summary      Admin report
// @Description  Scalar dashboard aggregates: member/trainer counts, subscription and payment states, session load.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/report [get]
func ApiAdminReport(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := stats.GetAdminReport(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

// @Summary      Admin report series
// @Description  Daily chart series: revenue, new members, subscriptions and bookings.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ReportSeriesRequest true "Requested series; empty for all"
// @Success      200  {object}  handlers.RespReportSeries
// @Router       /api/v1/admin/report_series [post]
func ApiAdminReportSeries(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ReportSeriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.GetReportSeries(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List users by role (Admin)
// @Tags         Admin
// @Produce      json
// @Param        role query string true "member or trainer"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/users [get]
func ApiAdminListUsers(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := types.Role(c.Query("role"))
		if role != types.RoleMember && role != types.RoleTrainer {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "role must be member or trainer"))
			return
		}
		users, err := svc.ListUsers(c.Request.Context(), role)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(users))
	}
}

// @Summary      Create user (Admin)
// @Description  Creates a member or trainer account. The account has no password and must set one on first login.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body accounts.CreateUserRequest true "New account"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/users [post]
func ApiAdminCreateUser(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req accounts.CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		u, err := svc.AdminCreateUser(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Update user (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        user_id path string true "User id"
// @Param        request body map[string]any true "Fields to update"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/users/{user_id} [patch]
func ApiAdminUpdateUser(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields map[string]any
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		u, err := svc.AdminUpdateUser(c.Request.Context(), c.Param("user_id"), fields)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Deactivate user (Admin)
// @Tags         Admin
// @Produce      json
// @Param        user_id path string true "User id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/users/{user_id} [delete]
func ApiAdminDeactivateUser(svc *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.AdminDeactivateUser(c.Request.Context(), c.Param("user_id")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "deactivated"}))
	}
}

// @Summary      Save membership plan (Admin)
// @Description  Creates a plan or updates it when an id is provided.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body models.MembershipPlan true "Plan"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/plans [post]
func ApiAdminSavePlan(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var plan models.MembershipPlan
		if err := c.ShouldBindJSON(&plan); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.SavePlan(c.Request.Context(), &plan); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&plan))
	}
}

// @Summary      Delete membership plan (Admin)
// @Tags         Admin
// @Produce      json
// @Param        plan_id path string true "Plan id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/plans/{plan_id} [delete]
func ApiAdminDeletePlan(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeletePlan(c.Request.Context(), c.Param("plan_id")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "deleted"}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, db *gorm.DB, acct *accounts.Service, plans *membership.Service, stats *statistics.Service) {
	r.POST("/list_payments", ApiListPayments(db))
	r.GET("/report", ApiAdminReport(stats))
	r.POST("/report_series", ApiAdminReportSeries(stats))
	r.GET("/users", ApiAdminListUsers(acct))
	r.POST("/users", ApiAdminCreateUser(acct))
	r.PATCH("/users/:user_id", ApiAdminUpdateUser(acct))
	r.DELETE("/users/:user_id", ApiAdminDeactivateUser(acct))
	r.POST("/plans", ApiAdminSavePlan(plans))
	r.DELETE("/plans/:plan_id", ApiAdminDeletePlan(plans))
}
