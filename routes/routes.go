package routes

import (
	"net/http"

	"rentledger-backend/config"
	"rentledger-backend/controllers"
	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the handles the HTTP layer needs.
type Dependencies struct {
	DB          *gorm.DB
	Ledger      *services.Ledger
	Notifier    *services.NotificationService
	CORSOrigins []string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	allowed := map[string]bool{}
	for _, o := range deps.CORSOrigins {
		allowed[o] = true
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
	}))

	r.Use(config.PerformanceLogger())

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	leaseController := controllers.LeaseController{Ledger: deps.Ledger}
	invoiceController := controllers.InvoiceController{Ledger: deps.Ledger}
	paymentController := controllers.PaymentController{Ledger: deps.Ledger}
	reportController := controllers.ReportController{Ledger: deps.Ledger}
	dashboardController := controllers.DashboardController{Ledger: deps.Ledger}
	renterController := controllers.RenterController{DB: deps.DB}
	unitController := controllers.UnitController{DB: deps.DB}
	notificationController := controllers.NotificationController{
		DB:       deps.DB,
		Notifier: deps.Notifier,
		Ledger:   deps.Ledger,
	}

	// Renter tokens carry no lease ownership, so every ledger route is staff only.
	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(), utils.RequireRole(utils.RoleAdmin, utils.RoleStaff))
	{
		// Lease routes
		leases := api.Group("/leases")
		{
			leases.POST("", leaseController.CreateLease)
			leases.POST("/:id/activate", leaseController.ActivateLease)
			leases.POST("/:id/terminate", leaseController.TerminateLease)
			leases.GET("/:id/balance", reportController.GetBalance)
			leases.GET("/:id/statement", reportController.GetStatement)
		}

		// Invoice routes
		invoices := api.Group("/invoices")
		{
			invoices.POST("", invoiceController.CreateInvoice)
			invoices.GET("", invoiceController.GetInvoices)
			invoices.GET("/:id", invoiceController.GetInvoice)
			invoices.POST("/:id/issue", invoiceController.IssueInvoice)
			invoices.POST("/generate-rent", invoiceController.GenerateRent)
		}

		// Payment routes
		payments := api.Group("/payments")
		{
			payments.POST("", paymentController.RecordPayment)
			payments.POST("/bulk", paymentController.RecordBulkPayment)
			payments.GET("", paymentController.GetPayments)
		}

		// Renter routes
		renters := api.Group("/renters")
		{
			renters.POST("", renterController.CreateRenter)
			renters.GET("", renterController.GetRenters)
			renters.GET("/:id", renterController.GetRenter)
			renters.PUT("/:id/preferences", renterController.UpdatePreferences)
		}

		// Unit routes
		units := api.Group("/units")
		{
			units.POST("", unitController.CreateUnit)
			units.GET("", unitController.GetUnits)
			units.PUT("/:id", unitController.UpdateUnit)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationController.GetNotifications)
			notifications.POST("/overdue", notificationController.SendOverdueNotices)
			notifications.GET("/templates", notificationController.GetTemplates)
			notifications.POST("/templates", notificationController.CreateTemplate)
			notifications.PUT("/templates/:id", notificationController.UpdateTemplate)
			notifications.DELETE("/templates/:id", notificationController.DeleteTemplate)
		}

		// Dashboard routes
		api.GET("/dashboard", dashboardController.GetOverview)
	}

	return r
}
