package main

import (
	"context"
	"log/slog"

	"github.com/df-mc/dragonfly/server"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs/dfworld"
)

// serve runs a Dragonfly server on addr and drives the tracker from its
// default world until ctx is done.
func serve(ctx context.Context, log *logrus.Logger, driver *dfworld.Driver, addr string) error {
	uc := server.DefaultConfig()
	uc.Network.Address = addr

	// Dragonfly only accepts a slog logger.
	conf, err := uc.Config(slog.New(slog.NewTextHandler(log.Out, nil)))
	if err != nil {
		return err
	}
	srv := conf.New()
	srv.Listen()
	driver.SetWorld(srv.World())

	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			log.WithError(err).Warn("closing dragonfly server")
		}
	}()

	log.WithField("addr", addr).Info("dragonfly server listening")
	h := dfworld.NewHandler(driver)
	for p := range srv.Accept() {
		p.Handle(h)
		log.WithField("player", p.Name()).Info("player joined")
	}
	driver.SetWorld(nil)
	return nil
}
