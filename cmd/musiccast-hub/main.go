package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmartin-dev/musiccast-hub-go/internal/config"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ingress"
	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
	"github.com/jmartin-dev/musiccast-hub-go/internal/server"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ssdp"
	"github.com/jmartin-dev/musiccast-hub-go/internal/supervisor"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/gena"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/soap"
	"github.com/jmartin-dev/musiccast-hub-go/internal/yxc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	addr := cfg.Host + ":" + cfg.Port

	reg := registry.New()
	bus := registry.NewBus(cfg.RegistrySubscriberQueueSize)
	dir := ingress.NewDirectory()

	yxcClient := yxc.NewClient(time.Duration(cfg.YXCTimeoutMs)*time.Millisecond, cfg.YXCAppName, cfg.YXCEventPort)
	soapClient := soap.NewClient(time.Duration(cfg.UpnpTimeoutMs) * time.Millisecond)
	genaClient := gena.NewClient(time.Duration(cfg.UpnpTimeoutMs) * time.Millisecond)

	sup := supervisor.New(yxcClient, soapClient, genaClient, reg, bus, dir, supervisor.Config{
		CallbackURLBase:            cfg.UpnpCallbackURL,
		UpnpSubscriptionTimeoutSec: cfg.UpnpDefaultSubTimeoutSec,
		YXCPollIntervalSec:         cfg.YXCPollIntervalSec,
		YXCRenewalBufferSec:        cfg.YXCRenewalBufferSec,
		GenaRenewalBufferSec:       cfg.GenaRenewalBufferSec,
		InitTimeout:                time.Duration(cfg.UpnpTimeoutMs) * time.Millisecond * 3,
		RescanCron:                 cfg.SSDPRescanCron,
	})

	ssdpListener, err := ssdp.NewListener(cfg.SSDPMXSeconds, reg.IsLive)
	if err != nil {
		log.Fatalf("ssdp listener init error: %v", err)
	}
	sup.AttachSSDP(ssdpListener)

	rootCtx, cancelRoot := context.WithCancel(context.Background())

	go func() {
		if err := ssdpListener.Run(rootCtx, time.Duration(cfg.SSDPAutoDiscoverSec)*time.Second); err != nil {
			log.Printf("ssdp listener stopped: %v", err)
		}
	}()

	if err := sup.StartRescan(); err != nil {
		log.Fatalf("ssdp rescan schedule error: %v", err)
	}

	if len(cfg.StaticDeviceIPs) > 0 {
		sup.SeedStatic(rootCtx, cfg.StaticDeviceIPs)
	}

	yxcListener, err := ingress.NewYXCListener(cfg.YXCEventPort, dir)
	if err != nil {
		log.Fatalf("yxc event listener init error: %v", err)
	}
	go func() {
		if err := yxcListener.Run(rootCtx); err != nil {
			log.Printf("yxc event listener stopped: %v", err)
		}
	}()

	upnpPath := "/v1/upnp/callback"
	if cfg.UpnpCallbackURL != "" {
		if parsed, err := url.Parse(cfg.UpnpCallbackURL); err == nil && parsed.Path != "" {
			upnpPath = parsed.Path
		}
	}

	handler := server.NewHandler(server.Deps{
		Registry:   reg,
		Bus:        bus,
		Directory:  dir,
		Supervisor: sup,
		SSDP:       ssdpListener,
		UpnpPath:   upnpPath,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		cancelRoot()
		sup.Stop()
		ssdpListener.Close()
		yxcListener.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("musiccast-hub-go listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
