// Command registry boots a standalone Discovery Registry gRPC endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/reflection"

	"goa.design/clue/log"

	"goa.design/fabric/capability"
	"goa.design/fabric/internal/bootstrap"
	"goa.design/fabric/registry"
	"goa.design/fabric/registry/store"
	"goa.design/fabric/registry/store/memory"
	redisstore "goa.design/fabric/registry/store/redis"
	fabricserver "goa.design/fabric/server"
	"goa.design/fabric/transport"
)

func main() {
	var (
		addr      = flag.String("listen", ":50051", "gRPC listen address")
		secret    = flag.String("secret", os.Getenv("FABRIC_TOKEN_SECRET"), "shared HMAC secret for capability tokens")
		redisAddr = flag.String("redis", os.Getenv("FABRIC_REDIS_ADDR"), "redis address for durable registry storage (empty uses in-memory store)")
		dbg       = flag.Bool("debug", false, "log debug messages")
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
		log.Fatalf(ctx, errors.New("missing secret"), "FABRIC_TOKEN_SECRET (or -secret) must be set")
	}
	signer := capability.NewSigner([]byte(*secret))

	var st store.Store
	if *redisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: *redisAddr})
		st = redisstore.New(client)
		log.Print(ctx, log.KV{K: "msg", V: "using redis-backed registry store"}, log.KV{K: "addr", V: *redisAddr})
	} else {
		st = memory.New()
		log.Print(ctx, log.KV{K: "msg", V: "using in-memory registry store"})
	}

	reg := registry.New(st, bootstrap.Telemetry())
	svc := fabricserver.NewDiscovery(signer, reg)

	encoding.RegisterCodec(transport.GobCodec{})

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf(ctx, err, "listen on %s", *addr)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(log.UnaryServerInterceptor(ctx)),
		grpc.ChainStreamInterceptor(log.StreamServerInterceptor(ctx)),
	)
	transport.RegisterDiscoveryServer(srv, svc)
	reflection.Register(srv)

	go func() {
		log.Print(ctx, log.KV{K: "msg", V: "registry listening"}, log.KV{K: "addr", V: *addr})
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
