package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/controllers"
	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/middlewares"
)

func SetupRouter(db *gorm.DB, h *hub.Hub) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db, h)
	sessionCtrl := controllers.NewSessionController(db, h)
	chatCtrl := controllers.NewChatController(db, h)
	orderCtrl := controllers.NewOrderController(db, h)
	streamCtrl := controllers.NewStreamController(h)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Stricter limiter on login/register.
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	api := r.Group("/api")

	// -- CUSTOMER (table-side device, no auth) --
	api.GET("/restaurants/:restaurant_id/events", streamCtrl.Events)

	api.GET("/tables/:table_id/sessions/active", sessionCtrl.GetActiveSession)
	api.POST("/tables/:table_id/sessions", sessionCtrl.OpenSession)
	api.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)

	api.GET("/sessions/:session_id/chat", chatCtrl.GetChatHistory)
	api.POST("/sessions/:session_id/chat", chatCtrl.SendMessage)
	api.POST("/sessions/:session_id/chat/read", chatCtrl.MarkChatRead)
	api.GET("/sessions/:session_id/bill", orderCtrl.GetBill)

	api.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// -- STAFF (dashboard, JWT) --
	staff := api.Group("/")
	staff.Use(middlewares.AuthMiddleware())
	staff.Use(middlewares.RequireRoles("admin", "waiter"))
	{
		staff.GET("/profile", userCtrl.GetProfile)

		staff.GET("/tables", tableCtrl.GetAllTables)
		staff.POST("/tables", tableCtrl.CreateTable)
		staff.GET("/tables/:table_id", tableCtrl.GetTableByID)
		staff.POST("/tables/:table_id/reset", tableCtrl.ResetTable)
		staff.PATCH("/tables/:table_id/clean", tableCtrl.MarkTableClean)

		staff.PATCH("/sessions/:session_id/guests", sessionCtrl.UpdateGuestCount)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
		staff.GET("/chat/read-status", chatCtrl.GetChatReadStatus)

		staff.GET("/restaurants/:restaurant_id/ws", streamCtrl.DashboardWS)
	}

	return r
}
