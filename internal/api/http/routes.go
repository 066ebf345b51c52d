package http

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/warehouse-state/internal/domain"
	"github.com/wms-platform/warehouse-state/pkg/middleware"
)

// RegisterValidators adds the request tags used by the handlers
func RegisterValidators() error {
	validators := []struct {
		tag     string
		fn      validator.Func
		message string
	}{
		{"location_code", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseLocationCode(fl.Field().String())
			return err == nil
		}, "must be a location code such as I009"},
		{"order_status", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseOrderStatus(fl.Field().String())
			return err == nil
		}, "must be one of: pending scheduled rejected completed cancelled"},
		{"task_type", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseTaskType(fl.Field().String())
			return err == nil
		}, "must be INBOUND or OUTBOUND"},
	}

	for _, v := range validators {
		if err := middleware.RegisterValidation(v.tag, v.fn, v.message); err != nil {
			return err
		}
	}
	return nil
}

// SetupRoutes configures all HTTP routes for the warehouse state service
func SetupRoutes(router *gin.Engine, handlers *Handlers) {
	v1 := router.Group("/api/v1")
	{
		// Inventory projection
		locations := v1.Group("/locations")
		{
			locations.GET("", handlers.GetProjection)
			locations.GET("/occupancy", handlers.GetOccupancy)
			locations.GET("/:code/inventory", handlers.GetLocationInventory)
		}

		// Order lifecycle
		orders := v1.Group("/orders")
		{
			orders.GET("", handlers.ListOrders)
			orders.POST("/sync", handlers.SyncOrders)
			orders.POST("/:orderId/transitions", handlers.RequestTransition)
			orders.POST("/:orderId/actions/:action", handlers.ApplyAction)
			orders.POST("/:orderId/dispatch", handlers.DispatchOrder)
		}

		// Fleet
		amrs := v1.Group("/amrs")
		{
			amrs.GET("", handlers.ListAMRs)
			amrs.GET("/stream", handlers.StreamAMRs)
			amrs.POST("/:amrId/move", handlers.MoveAMR)
			amrs.POST("/:amrId/charging", handlers.StartCharging)
			amrs.DELETE("/:amrId/charging", handlers.StopCharging)
		}

		v1.POST("/dispatch", handlers.Dispatch)
	}
}
