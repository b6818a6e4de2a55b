// Command contexttool boots a standalone ContextTool gRPC endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/reflection"

	"goa.design/clue/log"

	"goa.design/fabric/capability"
	"goa.design/fabric/contexttool"
	"goa.design/fabric/internal/bootstrap"
	"goa.design/fabric/internal/kvstore"
	fabricserver "goa.design/fabric/server"
	"goa.design/fabric/transport"
)

func main() {
	var (
		addr           = flag.String("listen", ":50052", "gRPC listen address")
		secret         = flag.String("secret", os.Getenv("FABRIC_TOKEN_SECRET"), "shared HMAC secret for capability tokens")
		dsn            = flag.String("postgres", os.Getenv("FABRIC_POSTGRES_DSN"), "postgres DSN for the context backend")
		readCap        = flag.String("read-capability", "db:inventory:read", "capability scope RequestContext requires")
		cacheTTL       = flag.Duration("cache-ttl", 30*time.Second, "context cache TTL")
		breakerThresh  = flag.Int("breaker-threshold", 3, "consecutive backend failures before the breaker opens")
		breakerRecover = flag.Duration("breaker-recover", 30*time.Second, "breaker open duration before a half-open probe")
		dbg            = flag.Bool("debug", false, "log debug messages")
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
	if *dsn == "" {
		log.Fatal(ctx, errors.New("FABRIC_POSTGRES_DSN (or -postgres) must be set"))
	}
	signer := capability.NewSigner([]byte(*secret))

	backend, err := kvstore.Open(*dsn)
	if err != nil {
		log.Fatalf(ctx, err, "open postgres backend")
	}

	svc := contexttool.New(backend, contexttool.Config{
		CacheTTL:           *cacheTTL,
		BreakerThreshold:   *breakerThresh,
		BreakerRecoverTime: *breakerRecover,
		ReadCapability:     *readCap,
	}, bootstrap.Telemetry())
	adapter := fabricserver.NewContextTool(signer, svc)

	encoding.RegisterCodec(transport.GobCodec{})

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf(ctx, err, "listen on %s", *addr)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(log.UnaryServerInterceptor(ctx)),
		grpc.ChainStreamInterceptor(log.StreamServerInterceptor(ctx)),
	)
	transport.RegisterContextToolServer(srv, adapter)
	reflection.Register(srv)

	go func() {
		log.Print(ctx, log.KV{K: "msg", V: "contexttool listening"}, log.KV{K: "addr", V: *addr})
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
