package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog     *inventory.CatalogUseCase
	Ledger      *inventory.LedgerUseCase
	Allocation  *inventory.AllocationUseCase
	JWTSecret   string
	ServiceName string
	Logger      *logger.Logger
	// Metrics nil = sin endpoint de métricas.
	Metrics     nethttp.Handler
	MetricsPath string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")
	validate := newValidator()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.Metrics))
	}

	// Todo /api requiere Bearer Token.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	read := RequireRole(RoleAdmin, RoleStorekeeper, RoleViewer)
	write := RequireRole(RoleAdmin, RoleStorekeeper)
	admin := RequireRole(RoleAdmin)

	itemHandler := NewItemHandler(deps.Catalog, deps.Ledger, validate, log)
	items := api.Group("/items")
	items.Post("/", write, itemHandler.Create)
	items.Get("/", read, itemHandler.List)
	items.Get("/low-stock", read, itemHandler.LowStock)
	items.Get("/:id", read, itemHandler.GetByID)
	items.Get("/:id/movements", read, itemHandler.Movements)
	items.Post("/:id/recompute", admin, itemHandler.Recompute)

	movementHandler := NewMovementHandler(deps.Ledger, validate, log)
	movements := api.Group("/movements")
	movements.Post("/", write, movementHandler.Register)
	movements.Delete("/:id", admin, movementHandler.Delete)
	api.Get("/orders/:id/material-cost", read, movementHandler.OrderMaterialCost)
	api.Get("/orders/:id/issues", read, movementHandler.OrderIssues)

	lotHandler := NewLotHandler(deps.Catalog, deps.Ledger, deps.Allocation, validate, log)
	lots := api.Group("/lots")
	lots.Post("/", write, lotHandler.Create)
	lots.Get("/:id", read, lotHandler.GetByID)
	lots.Get("/:id/movements", read, lotHandler.Movements)
	lots.Get("/:id/simulation", read, lotHandler.Simulate)
	lots.Put("/:id/usage-window", write, lotHandler.UpdateUsageWindow)
	lots.Post("/:id/allocate", write, lotHandler.Allocate)
	lots.Post("/:id/rollback", admin, lotHandler.Rollback)

	stageHandler := NewStageHandler(deps.Catalog, validate, log)
	api.Post("/stage-mappings", write, stageHandler.Create)
}
