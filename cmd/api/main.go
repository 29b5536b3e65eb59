package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/valitor-commerce/api/internal/gateway"
	"github.com/valitor-commerce/api/internal/handlers"
	"github.com/valitor-commerce/api/internal/platform/config"
	pfirestore "github.com/valitor-commerce/api/internal/platform/firestore"
	"github.com/valitor-commerce/api/internal/platform/observability"
	firestoreRepo "github.com/valitor-commerce/api/internal/repositories/firestore"
	"github.com/valitor-commerce/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	taxLineRepo, err := firestoreRepo.NewTaxLineRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise tax line repository", zap.Error(err))
	}
	cartRuleRepo, err := firestoreRepo.NewCartRuleRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart rule repository", zap.Error(err))
	}
	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	storeConfigRepo, err := firestoreRepo.NewStoreConfigRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise store config repository", zap.Error(err))
	}

	eventLogger := observability.EventLogger(logger.Named("gateway"))
	gatewayClient := gateway.NewAPIClient(gateway.APIClientConfig{
		Timeout: cfg.Gateway.Timeout,
		Logger:  eventLogger,
	})

	accounts := newConfigAccounts(cfg.Gateway, cfg.Stores)

	pricingMode, err := services.NewPricingModeResolver(storeConfigRepo)
	if err != nil {
		logger.Fatal("failed to initialise pricing mode resolver", zap.Error(err))
	}
	classifier, err := services.NewDiscountClassifier(cartRuleRepo)
	if err != nil {
		logger.Fatal("failed to initialise discount classifier", zap.Error(err))
	}
	shippingTax, err := services.NewShippingTaxResolver(taxLineRepo)
	if err != nil {
		logger.Fatal("failed to initialise shipping tax resolver", zap.Error(err))
	}

	serviceLogger := observability.EventLogger(logger.Named("services"))
	refundService, err := services.NewRefundService(services.RefundServiceDeps{
		Orders:      orderRepo,
		Gateway:     gatewayClient,
		Accounts:    accounts,
		PricingMode: pricingMode,
		Classifier:  classifier,
		ShippingTax: shippingTax,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise refund service", zap.Error(err))
	}

	terminalService := services.NewTerminalService(gatewayClient, accounts,
		services.WithTerminalLogger(serviceLogger),
	)

	summaryService, err := services.NewOrderSummaryService(services.OrderSummaryServiceDeps{
		Orders:   orderRepo,
		Products: productRepo,
		Config:   storeConfigRepo,
		Accounts: accounts,
		Logger:   serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order summary service", zap.Error(err))
	}

	refundHandlers := handlers.NewRefundHandlers(refundService)
	configHandlers := handlers.NewConfigHandlers(terminalService)
	orderHandlers := handlers.NewOrderHandlers(summaryService)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", firestorePing(firestoreClient)),
	)

	projectID := cfg.Trace.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithConfigRoutes(configHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithInternalRoutes(refundHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("valitor commerce api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func firestorePing(client *firestore.Client) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		_, err := client.Collections(probeCtx).Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		return err
	}
}

// configAccounts resolves per-store gateway accounts from static
// configuration. Stores without credentials of their own fall back to the
// default store account.
type configAccounts struct {
	baseURL       string
	usernames     map[string]string
	passwords     map[string]string
	terminalCodes map[string]struct{}
	mediaBaseURLs map[string]string
}

const fallbackStoreCode = "default"

func newConfigAccounts(gatewayCfg config.GatewayConfig, stores config.StoresConfig) *configAccounts {
	codes := make(map[string]struct{}, len(stores.TerminalCodes))
	for _, code := range stores.TerminalCodes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" {
			codes[code] = struct{}{}
		}
	}
	return &configAccounts{
		baseURL:       gatewayCfg.BaseURL,
		usernames:     stores.Usernames,
		passwords:     stores.Passwords,
		terminalCodes: codes,
		mediaBaseURLs: stores.MediaBaseURLs,
	}
}

func (a *configAccounts) AuthForStore(storeCode string) (gateway.Auth, error) {
	storeCode = strings.ToLower(strings.TrimSpace(storeCode))
	username, ok := a.usernames[storeCode]
	if !ok {
		storeCode = fallbackStoreCode
		username, ok = a.usernames[storeCode]
	}
	if !ok {
		return gateway.Auth{}, fmt.Errorf("no gateway account configured for store %q", storeCode)
	}
	return gateway.Auth{
		BaseURL:  a.baseURL,
		Username: username,
		Password: a.passwords[storeCode],
	}, nil
}

func (a *configAccounts) HandlesMethod(method string) bool {
	_, ok := a.terminalCodes[strings.ToLower(strings.TrimSpace(method))]
	return ok
}

func (a *configAccounts) MediaBaseURL(storeCode string) string {
	storeCode = strings.ToLower(strings.TrimSpace(storeCode))
	if url, ok := a.mediaBaseURLs[storeCode]; ok {
		return url
	}
	return a.mediaBaseURLs[fallbackStoreCode]
}
