// Command eventbus boots a standalone EventBus gRPC endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/reflection"

	"goa.design/clue/log"

	"goa.design/fabric/capability"
	"goa.design/fabric/eventbus"
	"goa.design/fabric/internal/bootstrap"
	"goa.design/fabric/middleware"
	fabricserver "goa.design/fabric/server"
	"goa.design/fabric/transport"
)

func main() {
	var (
		addr         = flag.String("listen", ":50053", "gRPC listen address")
		secret       = flag.String("secret", os.Getenv("FABRIC_TOKEN_SECRET"), "shared HMAC secret for capability tokens")
		publishRate  = flag.Float64("publish-rate", 50, "sustained publishes per second admitted per token subject")
		publishBurst = flag.Int("publish-burst", 100, "burst publishes admitted per token subject")
		dbg          = flag.Bool("debug", false, "log debug messages")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbg {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if *secret == "" {
		log.Fatal(ctx, errors.New("FABRIC_TOKEN_SECRET (or -secret) must be set"))
	}
	signer := capability.NewSigner([]byte(*secret))

	bus := eventbus.New(bootstrap.Telemetry(), eventbus.WithPublishLimiter(middleware.NewPerCallerLimiter(*publishRate, *publishBurst)))
	adapter := fabricserver.NewEventBus(signer, bus)

	encoding.RegisterCodec(transport.GobCodec{})

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf(ctx, err, "listen on %s", *addr)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(log.UnaryServerInterceptor(ctx)),
		grpc.ChainStreamInterceptor(log.StreamServerInterceptor(ctx)),
	)
	transport.RegisterEventBusServer(srv, adapter)
	reflection.Register(srv)

	go func() {
		log.Print(ctx, log.KV{K: "msg", V: "eventbus listening"}, log.KV{K: "addr", V: *addr})
		if err := srv.Serve(lis); err != nil {
			log.Fatalf(ctx, err, "serve")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Print(ctx, log.KV{K: "msg", V: "shutting down"})
	srv.GracefulStop()
}
