package handlers

import (
	"net/http"

	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/membership"
	"github.com/trainwise/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      List membership plans
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/plans [get]
func ApiListPlans(svc *membership.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.Plans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      List trainers
// @Description  Active trainers available for private class booking.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/trainers [get]
func ApiListTrainers(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		trainers, err := svc.Trainers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(trainers))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, plans *membership.Service, bookings *booking.Service) {
	r.GET("/plans", ApiListPlans(plans))
	r.GET("/trainers", ApiListTrainers(bookings))
}
