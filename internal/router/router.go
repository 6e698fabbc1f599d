package router

import (
	"time"

	"minisuper/internal/config"
	"minisuper/internal/handler"
	"minisuper/internal/infra"
	"minisuper/internal/middleware"
	"minisuper/internal/model"
	"minisuper/internal/repository"
	"minisuper/internal/service"
	"minisuper/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// tasas is shared with the refresh cron so both go through the same breaker.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, tasas service.TasaService, tasaCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Worker dispatcher, injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo, loteRepo, tasas, rdb)
	inventarioSvc := service.NewInventarioService(loteRepo, productoRepo, tasas)
	cajaSvc := service.NewCajaService(cajaRepo, tasas, dispatcher)
	numerador := service.NewNumeradorVentas(ventaRepo, cfg.Location())
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, inventarioSvc, cajaSvc, tasas, numerador, cfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	tasaH := handler.NewTasaHandler(tasas)
	jobsH := handler.NewJobsHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, tasaCB))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api", middleware.RateLimiter(rdb, "api", 1000, time.Minute)) // 1000 req/min per IP

	// Auth (public)
	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(rdb), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	todos := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
	supervisores := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)
	admin := middleware.RequireRole(model.RolAdministrador)

	// Protected routes
	v := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		v.GET("/auth/me", todos, authH.Perfil)

		sales := v.Group("/sales")
		{
			sales.POST("", todos, ventasH.CrearVenta)
			sales.GET("", todos, ventasH.ListarVentas)
			sales.GET("/:id", todos, ventasH.ObtenerVenta)
			sales.GET("/:id/receipt", todos, ventasH.ObtenerRecibo)
			// Cancelling restores stock: supervisor or administrador
			sales.PUT("/:id/cancel", supervisores, ventasH.AnularVenta)
		}

		cajas := v.Group("/cash-registers")
		{
			cajas.POST("/open", todos, cajaH.Abrir)
			cajas.POST("/close", todos, cajaH.Cerrar)
			cajas.GET("/status", todos, cajaH.Estado)
			cajas.GET("/history", supervisores, cajaH.Historial)
			cajas.GET("", todos, cajaH.ListarCajas)
			cajas.POST("", admin, cajaH.CrearCaja)
		}

		prods := v.Group("/products")
		{
			prods.GET("/barcode/:codigo", todos, productosH.ConsultarPrecio)
			prods.GET("/:id", todos, productosH.ObtenerPorID)
			prods.POST("", admin, productosH.Crear)
		}

		inv := v.Group("/inventory", supervisores)
		{
			inv.POST("/lots", inventarioH.CrearLotes)
			inv.PATCH("/lots/:id", inventarioH.AjustarLote)
			inv.GET("/products/:id/stock", inventarioH.StockProducto)
			inv.GET("/expiring", inventarioH.ReporteVencimientos)
		}

		moneda := v.Group("/currency")
		{
			moneda.GET("/rate", todos, tasaH.Actual)
			moneda.GET("/history", todos, tasaH.Historial)
			moneda.GET("/convert", todos, tasaH.Convertir)
			moneda.POST("/rate", supervisores, tasaH.ActualizarManual)
			moneda.POST("/rate/refresh", supervisores, tasaH.Refrescar)
		}

		usuarios := v.Group("/users", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
		}

		v.GET("/jobs/dlq", admin, jobsH.ListarDLQ)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
