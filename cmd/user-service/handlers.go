package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/user"
)

// healthService is the name reported by the gRPC health server.
const healthService = "tienda.user.v1"

func registerRoutes(r *gin.Engine, svc *user.Service) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	g := r.Group("/api/user")
	g.POST("/create", createUserHandler(svc))
	g.POST("/login", loginHandler(svc))
}

// @Summary Register a user
// @Tags user
// @Param body body user.RegisterRequest true "account"
// @Success 201 {object} httpx.Envelope
// @Router /user/create [post]
func createUserHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "All fields are required")
			return
		}
		u, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "User created successfully", u)
	}
}

// loginHandler answers with token and userData at the top level, the shape
// the storefront reads.
func loginHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Email and password are required")
			return
		}
		token, u, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Login successful",
			"token":    token,
			"userData": u,
		})
	}
}

func newHealthServer() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	return hs
}
