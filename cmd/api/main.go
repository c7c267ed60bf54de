package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/noah-isme/gateway-pay/internal/app"
	"github.com/noah-isme/gateway-pay/internal/config"
	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/gateway/paypal"
	"github.com/noah-isme/gateway-pay/internal/gateway/redsys"
	"github.com/noah-isme/gateway-pay/internal/obs"
	"github.com/noah-isme/gateway-pay/internal/replay"
	"github.com/noah-isme/gateway-pay/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics("gatewaypay", nil)

	base := gateway.Request{
		Currency:   "EUR",
		NotifyURL:  cfg.NotifyURL,
		SuccessURL: cfg.SuccessURL,
		ErrorURL:   cfg.ErrorURL,
	}
	if cfg.FeePercent != "" {
		percent, err := decimal.NewFromString(cfg.FeePercent)
		if err != nil {
			logger.Fatal().Str("fee_percent", cfg.FeePercent).Err(err).Msg("parse fee percent")
		}
		base.Fee = gateway.FlatPercentage(percent)
	}

	var txns replay.Store
	var notifyMiddleware func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient := redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("ping redis")
		}

		txns = &replay.RedisStore{R: redisClient, TTL: cfg.TxnTTL}

		limiterStore, err := app.NewLimiterStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise limiter store")
		}
		lim, err := app.NewLimiter(limiterStore, cfg.RateLimit)
		if err != nil {
			logger.Fatal().Str("rate", cfg.RateLimit).Err(err).Msg("initialise limiter")
		}
		notifyMiddleware = limiterstdlib.NewMiddleware(lim).Handler
	}

	gateways := make(map[string]gateway.Gateway)
	if cfg.PayPalBusiness != "" {
		req := base
		req.MerchantID = cfg.PayPalBusiness
		gateways["paypal"] = &paypal.Adapter{
			Request: req,
			Sandbox: cfg.PayPalSandbox,
			Txns:    txns,
			Log:     logger,
		}
	}
	if cfg.RedsysMerchantCode != "" {
		req := base
		req.MerchantID = cfg.RedsysMerchantCode
		req.MerchantName = cfg.RedsysMerchantName
		req.Secret = cfg.RedsysSecret
		req.OrderID = redsys.NewOrderCode()
		switch cfg.RedsysSignature {
		case "sha1":
			gateways["redsys"] = &redsys.LegacyAdapter{
				Request:  req,
				Terminal: cfg.RedsysTerminal,
				Sandbox:  cfg.RedsysSandbox,
			}
		default:
			gateways["redsys"] = &redsys.Adapter{
				Request:  req,
				Terminal: cfg.RedsysTerminal,
				Sandbox:  cfg.RedsysSandbox,
				Log:      logger,
			}
		}
	}

	router := server.NewRouter(server.RouterConfig{
		Handler:          &server.Handler{Gateways: gateways, Log: logger},
		RequestLogger:    obs.RequestLogger{Logger: logger},
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		NotifyMiddleware: notifyMiddleware,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Strs("gateways", gatewayNames(gateways)).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func gatewayNames(gateways map[string]gateway.Gateway) []string {
	names := make([]string, 0, len(gateways))
	for name := range gateways {
		names = append(names, name)
	}
	return names
}
