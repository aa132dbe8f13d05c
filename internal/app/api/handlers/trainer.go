package handlers

import (
	"net/http"
	"time"

	"github.com/trainwise/backend/internal/app/api/middleware"
	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/statistics"
	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type trainerScheduleResponse struct {
	Today    []*models.Booking `json:"today"`
	Upcoming []*models.Booking `json:"upcoming"`
}

// @Summary      Trainer schedule
// @Description  The trainer's sessions today and over the next seven days.
// @Tags         Trainer
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/trainer/schedule [get]
func ApiTrainerSchedule(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		today, upcoming, err := svc.TrainerSchedule(c.Request.Context(), middleware.AuthUserID(c), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(trainerScheduleResponse{Today: today, Upcoming: upcoming}))
	}
}

// @Summary      Trainer dashboard
// @Description  Session counts, unique members and revenue for the trainer.
// @Tags         Trainer
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/trainer/dashboard [get]
func ApiTrainerDashboard(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := stats.GetTrainerDashboard(c.Request.Context(), middleware.AuthUserID(c), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

func RegisterTrainerRoutes(r gin.IRouter, bookings *booking.Service, stats *statistics.Service) {
	r.GET("/schedule", ApiTrainerSchedule(bookings))
	r.GET("/dashboard", ApiTrainerDashboard(stats))
}
