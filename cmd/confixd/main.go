package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/confixenvios/confixenvios-sub003/cmd/confixd/handlers"
	"github.com/confixenvios/confixenvios-sub003/pkg/ai"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/buildtime"
	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
	"github.com/confixenvios/confixenvios-sub003/pkg/configs"
	kdb "github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpg "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres"
	"github.com/confixenvios/confixenvios-sub003/pkg/echoutil"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/filewatch"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to config file. without this, configured by environment variables only.")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	log.Printf("confixd %s", buildtime.String())

	conf, err := configs.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	e := echo.New()
	e.HideBanner = true

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = echoutil.HTTPErrorHandler(e)
	e.Use(middleware.Recover())
	e.Use(echoutil.LogHandlerFunc)
	if len(conf.CORSOrigins) != 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: conf.CORSOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}
	e.Use(middleware.BodyLimit(conf.BodyLimit))

	verifier := auth.NewVerifier(conf.Auth.JWTSecret, auth.WithAudience(conf.Auth.Audience))
	e.Use(auth.Authenticate(verifier))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := kpg.New(ctx, conf.Database.URI, kpg.WithSchemaRepository(conf.Database.SchemaRepository))
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()

	// quit when the schema or the config file is updated. the orchestrator restarts us.
	ctx, cancelSchema := db.Schema().Context(ctx)
	defer cancelSchema()
	if *configPath != "" {
		fctx, fcancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer fcancel()
		ctx = fctx
	}
	context.AfterFunc(ctx, func() {
		log.Printf("stopping server: %s", context.Cause(ctx))
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.Printf("error on shutdown: %s", err)
		}
	})

	engine, err := ratingEngine(db, conf.AI)
	if err != nil {
		log.Fatalf("can not set up rating: %s", err)
	}
	charger := &payment.Charger{
		Gateway: asaas.New(
			conf.Asaas.URL, conf.Asaas.APIKey,
			asaas.WithHTTPClient(&http.Client{Timeout: conf.Asaas.Timeout}),
		),
		Payments: db.Payments(),
		DueDays:  conf.Asaas.DueDays,
	}
	lookup, err := cep.BrasilAPI(conf.CEP.URL, conf.CEP.Timeout)
	if err != nil {
		log.Fatalf("can not set up cep lookup: %s", err)
	}
	sender := webhook.Sender{Client: &http.Client{Timeout: 15 * time.Second}}

	register(e, routes{
		db:       db,
		engine:   engine,
		charger:  charger,
		lookup:   lookup,
		sender:   sender,
		quoteTTL: conf.QuoteTTL,
		asaas:    conf.Asaas.WebhookToken,
		inbound:  conf.Inbound.Token,
	})

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	addr := ":" + strconv.Itoa(conf.Port)
	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		err = e.StartTLS(addr, cert, key)
	} else {
		err = e.Start(addr)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal(err)
	}
}

func ratingEngine(db kdb.ConfixDatabase, conf configs.AI) (*rating.Engine, error) {
	if !conf.Enabled() {
		return rating.NewEngine(db.PricingTables()), nil
	}
	est, err := ai.New(ai.Config{
		URL:         conf.URL,
		APIKey:      conf.APIKey,
		Model:       conf.Model,
		CubicFactor: conf.CubicFactor,
		HTTPClient:  &http.Client{Timeout: conf.Timeout},
	})
	if err != nil {
		return nil, err
	}
	return rating.NewEngine(db.PricingTables(), rating.WithFallback(est)), nil
}

type routes struct {
	db       kdb.ConfixDatabase
	engine   handlers.Rater
	charger  handlers.Charger
	lookup   cep.Lookup
	sender   handlers.Sender
	quoteTTL time.Duration

	// tokens of inbound webhooks
	asaas   string
	inbound string
}

func register(e *echo.Echo, r routes) {
	now := time.Now
	quotes := r.db.Quotes()
	shipments := r.db.Shipments()
	payments := r.db.Payments()
	hooks := r.db.Webhooks()
	ctes := r.db.CTes()
	tickets := r.db.Tickets()
	pricing := r.db.PricingTables()

	api := e.Group("/api")
	user := api.Group("", auth.RequireUser)
	admin := api.Group("/admin", auth.RequireAdmin)

	// public
	{
		api.POST("/quotes", handlers.CreateQuoteHandler(r.engine, quotes, r.quoteTTL, now))
		api.GET("/quotes/:quoteId", handlers.GetQuoteHandler(quotes, "quoteId", now))
		api.GET("/tracking/:trackingCode", handlers.TrackingHandler(shipments, "trackingCode"))
		api.GET("/cep/:cep", handlers.CEPHandler(r.lookup, "cep"))
	}

	// inbound webhooks, authenticated by shared tokens
	{
		api.POST("/webhooks/asaas", handlers.AsaasWebhookHandler(payments, r.asaas))
		api.POST("/webhooks/cte", handlers.CTeWebhookHandler(ctes, r.inbound))
		api.POST("/webhooks/tracking", handlers.TrackingWebhookHandler(shipments, r.inbound, now))
	}

	{
		user.POST("/shipments", handlers.CreateShipmentHandler(quotes, shipments))
		user.GET("/shipments", handlers.ListMyShipmentsHandler(shipments))
		user.GET("/shipments/:shipmentId", handlers.GetShipmentHandler(shipments, "shipmentId"))
		user.GET("/shipments/:shipmentId/events", handlers.ShipmentEventsHandler(shipments, "shipmentId"))
		user.POST("/shipments/:shipmentId/cancel", handlers.CancelShipmentHandler(shipments, "shipmentId"))
		user.GET("/shipments/:shipmentId/ctes", handlers.ShipmentCTesHandler(shipments, ctes, "shipmentId"))
		user.POST("/shipments/:shipmentId/payments", handlers.CreatePaymentHandler(shipments, r.charger, "shipmentId"))
		user.GET("/shipments/:shipmentId/payments", handlers.ListPaymentsHandler(shipments, payments, "shipmentId"))

		admin.GET("/shipments", handlers.FindShipmentsHandler(shipments))
		admin.PUT("/shipments/:shipmentId/status", handlers.SetShipmentStatusHandler(shipments, "shipmentId"))
		admin.PUT("/shipments/:shipmentId/label", handlers.AttachLabelHandler(shipments, "shipmentId"))
		admin.GET("/stats", handlers.StatsHandler(shipments))
		admin.GET("/ctes", handlers.FindCTesHandler(ctes))
	}

	{
		admin.GET("/webhooks", handlers.ListEndpointsHandler(hooks))
		admin.POST("/webhooks", handlers.CreateEndpointHandler(hooks))
		admin.GET("/webhooks/:endpointId", handlers.GetEndpointHandler(hooks, "endpointId"))
		admin.PUT("/webhooks/:endpointId", handlers.UpdateEndpointHandler(hooks, "endpointId"))
		admin.DELETE("/webhooks/:endpointId", handlers.DeleteEndpointHandler(hooks, "endpointId"))
		admin.POST("/webhooks/:endpointId/test", handlers.TestEndpointHandler(hooks, r.sender, "endpointId", now))
		admin.GET("/webhooks/:endpointId/deliveries", handlers.ListDeliveriesHandler(hooks, "endpointId"))
		admin.POST("/deliveries/:deliveryId/redeliver", handlers.RedeliverHandler(hooks, "deliveryId"))
	}

	{
		admin.GET("/pricing-tables", handlers.ListTablesHandler(pricing))
		admin.POST("/pricing-tables", handlers.CreateTableHandler(pricing))
		admin.GET("/pricing-tables/:tableId", handlers.GetTableHandler(pricing, "tableId"))
		admin.PUT("/pricing-tables/:tableId", handlers.UpdateTableHandler(pricing, "tableId"))
		admin.DELETE("/pricing-tables/:tableId", handlers.DeleteTableHandler(pricing, "tableId"))
		admin.PUT("/pricing-tables/:tableId/active", handlers.SetTableActiveHandler(pricing, "tableId", true))
		admin.DELETE("/pricing-tables/:tableId/active", handlers.SetTableActiveHandler(pricing, "tableId", false))
		admin.PUT("/pricing-tables/:tableId/sheet", handlers.ImportSheetHandler(pricing, "tableId"))
	}

	{
		user.POST("/tickets", handlers.CreateTicketHandler(tickets, shipments))
		user.GET("/tickets", handlers.ListMyTicketsHandler(tickets))
		user.GET("/tickets/:ticketId", handlers.GetTicketHandler(tickets, "ticketId"))
		user.POST("/tickets/:ticketId/messages", handlers.AddMessageHandler(tickets, "ticketId"))

		admin.GET("/tickets", handlers.FindTicketsHandler(tickets))
		admin.PUT("/tickets/:ticketId/status", handlers.SetTicketStatusHandler(tickets, "ticketId"))
	}
}
