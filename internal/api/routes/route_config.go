package routes

import (
	"crimson-backend/internal/api/handlers"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App                *fiber.App
	AuthHandler        handlers.AuthHandler
	BloodCampHandler   handlers.BloodCampHandler
	OrganHandler       handlers.OrganHandler
	TransactionHandler handlers.TransactionHandler
	AssistantHandler   handlers.AssistantHandler
	ReportHandler      handlers.ReportHandler
	PinHandler         handlers.PinHandler
	Middleware         middleware.Middleware
	JWTService         jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Auth()
	c.Camps()
	c.Organ()
	c.Transactions()
	c.Assistant()
	c.Reports()
	c.Pins()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) Auth() {
	auth := c.App.Group("/api/v1/auth")
	auth.Post("/nonce", c.AuthHandler.Nonce)
	auth.Post("/login", c.AuthHandler.Login)
}

func (c *Config) Camps() {
	user := c.Middleware.AuthMiddleware(c.JWTService)
	admin := c.Middleware.AdminMiddleware()

	camps := c.App.Group("/api/v1/camps")
	camps.Get("", c.BloodCampHandler.ListCamps)
	camps.Get("/owned", user, c.BloodCampHandler.OwnedCamps)
	camps.Get("/:id", c.BloodCampHandler.GetCamp)
	camps.Get("/:id/inventory", c.BloodCampHandler.GetInventory)
	camps.Get("/:id/inventory/:bloodType", c.BloodCampHandler.GetInventoryItem)
	camps.Get("/:id/donors", c.BloodCampHandler.GetDonors)
	camps.Get("/:id/registrants", c.BloodCampHandler.GetRegistrants)

	// operator-signed writes
	camps.Post("", user, admin, c.BloodCampHandler.CreateCamp)
	camps.Put("/:id/inventory", user, admin, c.BloodCampHandler.UpdateInventory)
	camps.Post("/:id/donors", user, admin, c.BloodCampHandler.AddDonor)
	camps.Post("/:id/registrants", user, admin, c.BloodCampHandler.AddRegistrant)
	camps.Post("/:id/nft", user, admin, c.BloodCampHandler.IssueNFT)
}

func (c *Config) Organ() {
	user := c.Middleware.AuthMiddleware(c.JWTService)
	admin := c.Middleware.AdminMiddleware()

	organ := c.App.Group("/api/v1/organ")
	organ.Get("/hospitals", c.OrganHandler.ListHospitals)
	organ.Get("/requests", c.OrganHandler.ListRequests)
	organ.Get("/donors/:address", c.OrganHandler.GetDonor)
	organ.Get("/availability", c.OrganHandler.CheckAvailability)

	organ.Post("/hospitals", user, admin, c.OrganHandler.RegisterHospital)
	organ.Post("/requests", user, admin, c.OrganHandler.CreateRequest)

	// wallet-signed writes, relayed through /transactions/raw
	organ.Post("/donors", user, c.OrganHandler.RegisterDonor)
	organ.Post("/donors/:address/approve", user, c.OrganHandler.ApproveDonor)
}

func (c *Config) Transactions() {
	user := c.Middleware.AuthMiddleware(c.JWTService)

	txs := c.App.Group("/api/v1/transactions")
	txs.Post("/raw", user, c.TransactionHandler.Relay)
	txs.Get("", user, c.TransactionHandler.ListTransactions)
	txs.Get("/:id", c.TransactionHandler.GetTransaction)
	txs.Post("/:id/abandon", user, c.TransactionHandler.Abandon)

	chain := c.App.Group("/api/v1/chain")
	chain.Get("", c.TransactionHandler.ListChains)
	chain.Post("/switch", user, c.Middleware.AdminMiddleware(), c.TransactionHandler.SwitchChain)
}

func (c *Config) Assistant() {
	assistant := c.App.Group("/api/v1/assistant")
	assistant.Post("/chat", c.AssistantHandler.Chat)
	assistant.Post("/eligibility", c.AssistantHandler.CheckEligibility)
}

func (c *Config) Reports() {
	reports := c.App.Group("/api/v1/reports", c.Middleware.AuthMiddleware(c.JWTService))
	reports.Post("", c.ReportHandler.AnalyzeReport)
	reports.Get("", c.ReportHandler.ListReports)
	reports.Get("/:id", c.ReportHandler.GetReport)
}

func (c *Config) Pins() {
	user := c.Middleware.AuthMiddleware(c.JWTService)

	pins := c.App.Group("/api/v1/pins")
	pins.Post("", user, c.PinHandler.PinFile)
	pins.Get("", user, c.PinHandler.ListPins)
	pins.Get("/:digest", c.PinHandler.GetPin)
	pins.Get("/:digest/content", c.PinHandler.GetPinContent)
}
