package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apiHandler "github.com/minicrm/backend/api/handler"
)

type Handlers struct {
	Order    *apiHandler.OrderHandler
	Catalog  *apiHandler.CatalogHandler
	Campaign *apiHandler.CampaignHandler
	Receipt  *apiHandler.ReceiptHandler
	Health   *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	// Orders
	r.POST("/api/v1/orders", handlers.Order.PlaceOrder)
	r.GET("/api/v1/orders/{reference}", handlers.Order.GetOrder)

	// Catalog
	r.POST("/api/v1/customers", handlers.Catalog.CreateCustomer)
	r.GET("/api/v1/customers", handlers.Catalog.ListCustomers)
	r.GET("/api/v1/customers/{id}", handlers.Catalog.GetCustomer)
	r.POST("/api/v1/products", handlers.Catalog.CreateProduct)
	r.GET("/api/v1/products", handlers.Catalog.ListProducts)
	r.POST("/api/v1/segments", handlers.Catalog.CreateSegment)
	r.GET("/api/v1/segments", handlers.Catalog.ListSegments)
	r.POST("/api/v1/segments/preview", handlers.Catalog.PreviewSegment)

	// Campaigns
	r.POST("/api/v1/campaigns", handlers.Campaign.CreateCampaign)
	r.GET("/api/v1/campaigns", handlers.Campaign.ListCampaigns)
	r.GET("/api/v1/campaigns/{id}", handlers.Campaign.GetCampaign)
	r.POST("/api/v1/campaigns/{id}/schedule", handlers.Campaign.ScheduleCampaign)
	r.GET("/api/v1/campaigns/{id}/stats", handlers.Campaign.CampaignStats)

	// Vendor callback
	r.POST("/api/v1/delivery-receipt", handlers.Receipt.Ingest)

	return r
}
