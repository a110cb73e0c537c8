// Package main car sharing API.
//
// @title           Car Sharing API
// @version         1.0
// @description     Car sharing service (cars, rentals, payments, notifications).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/AntonBabychP1T/ca/app/echoServer"
	authctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/auth"
	carctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/car"
	paymentctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/payment"
	rentalctrl "github.com/AntonBabychP1T/ca/app/echoServer/controller/rental"
	"github.com/AntonBabychP1T/ca/app/echoServer/validation"
	"github.com/AntonBabychP1T/ca/app/telegram"
	"github.com/AntonBabychP1T/ca/config"
	carrepo "github.com/AntonBabychP1T/ca/repository/car"
	paymentrepo "github.com/AntonBabychP1T/ca/repository/payment"
	rentalrepo "github.com/AntonBabychP1T/ca/repository/rental"
	striperepo "github.com/AntonBabychP1T/ca/repository/stripe"
	telegramrepo "github.com/AntonBabychP1T/ca/repository/telegram"
	telegramuserrepo "github.com/AntonBabychP1T/ca/repository/telegramuser"
	userrepo "github.com/AntonBabychP1T/ca/repository/user"
	"github.com/AntonBabychP1T/ca/scheduler"
	authsvc "github.com/AntonBabychP1T/ca/service/auth"
	carsvc "github.com/AntonBabychP1T/ca/service/car"
	"github.com/AntonBabychP1T/ca/service/inventory"
	notificationsvc "github.com/AntonBabychP1T/ca/service/notification"
	paymentsvc "github.com/AntonBabychP1T/ca/service/payment"
	rentalsvc "github.com/AntonBabychP1T/ca/service/rental"
	telegramusersvc "github.com/AntonBabychP1T/ca/service/telegramuser"
	"github.com/AntonBabychP1T/ca/util/database"
)

func main() {

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	cr := carrepo.New(db)
	rr := rentalrepo.New(db)
	pr := paymentrepo.New(db)
	ur := userrepo.New(db)
	tr := telegramuserrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeAPIKey, cfg.StripeSuccessURL, cfg.StripeCancelURL)
	tg := telegramrepo.NewHTTP(cfg.TelegramBotToken)

	// services
	notifier := notificationsvc.New(tr, tg, log)
	ledger := inventory.New(cr)
	as := authsvc.New(ur, cfg.JWTSecret)
	cs := carsvc.New(cr)
	rs := rentalsvc.New(db, rr, ledger, pr, notifier)
	ps := paymentsvc.New(db, pr, rr, cr, ur, gw, notifier, log)
	ts := telegramusersvc.New(ur, tr, telegramusersvc.NewStateStore())

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	carC := &carctrl.Controller{Svc: cs, V: v, Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, V: v, Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:    authC,
		Car:     carC,
		Rental:  rentalC,
		Payment: paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	// background sweeps
	sched := scheduler.New(log,
		scheduler.Task{Name: "overdue-rentals", Interval: cfg.OverdueSweep, Run: rs.CheckOverdue},
		scheduler.Task{Name: "expired-sessions", Interval: cfg.SessionSweep, Run: ps.ReconcileExpired},
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return e.Shutdown(context.Background())
	})
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.TelegramBotToken != "" {
		bot := &telegram.Bot{API: tg, Users: ts, Rentals: rs, Log: log}
		g.Go(func() error { return bot.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "err", err)
		os.Exit(1)
	}
}
