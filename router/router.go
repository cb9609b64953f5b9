package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yeremiapane/table-order/controllers"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// Dependencies are the wired services the HTTP surface needs.
type Dependencies struct {
	Tokens      *utils.TokenManager
	Users       *services.UserService
	Foods       *services.FoodService
	Tables      *services.TableService
	Checkout    *services.CheckoutService
	OTP         *services.OTPService
	Hub         *kds.Hub
	Metrics     *metrics.Metrics
	CORSOrigin  string
	RateLimiter *middlewares.IPRateLimiter
}

func SetupRouter(d Dependencies) *gin.Engine {
	binding.EnableDecoderDisallowUnknownFields = true

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	limiter := d.RateLimiter
	if limiter == nil {
		limiter = middlewares.NewIPRateLimiter(5)
	}
	auth := middlewares.AuthMiddleware(d.Tokens)

	userController := controllers.NewUserController(d.Users)
	foodController := controllers.NewFoodController(d.Foods)
	tableController := controllers.NewTableController(d.Tables)
	paymentController := controllers.NewPaymentController(d.Checkout)
	otpController := controllers.NewOTPController(d.OTP)
	feedController := controllers.NewFeedController(d.Hub, d.CORSOrigin)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	user := r.Group("/user")
	{
		user.POST("/register", userController.Register)
		user.POST("/login", limiter.RateLimit(), userController.Login)
		user.GET("/profile", auth, userController.GetProfile)
	}

	food := r.Group("/food")
	{
		food.GET("/list", foodController.ListFoods)
		food.POST("/add", auth, foodController.AddFood)
	}

	table := r.Group("/table")
	{
		table.POST("/create", tableController.CreateTable)
		table.GET("/tables", tableController.GetAllTables)
		table.POST("/delete", tableController.DeleteTable)
		table.POST("/order", auth, tableController.PlaceOrder)
		table.POST("/table-orders", tableController.TableOrders)
		table.POST("/update-status", tableController.UpdateStatus)
		table.POST("/completed-order", tableController.CompletedOrder)
		table.POST("/payment", paymentController.CreatePayment)
		table.POST("/verify-payment", paymentController.VerifyPayment)
		table.POST("/payment/notification", paymentController.PaymentNotification)
	}

	otp := r.Group("/auth")
	{
		otp.POST("/request-otp", auth, limiter.RateLimit(), otpController.RequestOTP)
		otp.POST("/verify-otp/password-change", auth, limiter.RateLimit(), otpController.VerifyOTPAndChangePassword)
		otp.POST("/verify-otp", auth, limiter.RateLimit(), otpController.VerifyOTP)
		otp.POST("/change-password", otpController.ChangePassword)
		otp.POST("/request-login-otp", limiter.RateLimit(), otpController.RequestLoginOTP)
		otp.POST("/verify-login-otp", limiter.RateLimit(), otpController.VerifyLoginOTP)
	}

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(d.Tokens), feedController.Serve)

	return r
}
