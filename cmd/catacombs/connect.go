package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs"
	"github.com/oriumgames/catacombs/bedrock"
)

// connect joins the server at addr as name and feeds every packet it
// receives into svc until ctx is done or the connection drops.
func connect(ctx context.Context, log *logrus.Logger, svc *catacombs.Service, addr, name string) error {
	dialer := minecraft.Dialer{
		IdentityData: login.IdentityData{DisplayName: name},
	}
	conn, err := dialer.DialContext(ctx, "raknet", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.DoSpawnContext(ctx); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	log.WithField("addr", addr).Info("joined server")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	bridge := bedrock.NewBridge(svc, log)
	for {
		pk, err := conn.ReadPacket()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read packet: %w", err)
		}
		bridge.HandlePacket(pk)
	}
}
