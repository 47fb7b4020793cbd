package routes

import (
	"net/http"
	"time"

	"parishly/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers the router needs.
type HandlerBundle struct {
	Availability *handlers.AvailabilityHandler
	Appointments *handlers.AppointmentHandler
	Reschedules  *handlers.RescheduleHandler
	Schedules    *handlers.ScheduleHandler
}

// RegisterRoutes wires every endpoint of the booking engine.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	availability := r.Group("/api/availability")
	{
		availability.GET("/services/:serviceID/occurrences", hb.Availability.ListOccurrencesHandler)
		availability.GET("/schedules/:scheduleID/slots/:date", hb.Availability.ListSlotRemainingHandler)
	}

	appointments := r.Group("/api/appointments")
	{
		appointments.POST("", hb.Appointments.CreateAppointmentHandler)
		appointments.POST("/:appointmentID/approve", hb.Appointments.ApproveAppointmentHandler)
		appointments.POST("/:appointmentID/reject", hb.Appointments.RejectAppointmentHandler)
		appointments.POST("/:appointmentID/cancel", hb.Appointments.CancelAppointmentHandler)
		appointments.POST("/:appointmentID/complete", hb.Appointments.CompleteAppointmentHandler)
		appointments.POST("/:appointmentID/reschedule", hb.Reschedules.RescheduleAppointmentHandler)
		appointments.GET("/user/:userID", hb.Appointments.ListUserAppointmentsHandler)
	}

	payments := r.Group("/api/payments")
	{
		payments.POST("/callback", hb.Reschedules.PaymentCallbackHandler)
	}

	schedules := r.Group("/api/schedules")
	{
		schedules.POST("", hb.Schedules.CreateScheduleHandler)
		schedules.PUT("/:scheduleID", hb.Schedules.UpdateScheduleHandler)
		schedules.DELETE("/:scheduleID", hb.Schedules.DeleteScheduleHandler)
	}
}
