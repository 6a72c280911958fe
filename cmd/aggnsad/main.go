// Command aggnsad is the long-running aggregator daemon: it holds the
// in-process state a single Aggregator needs across its whole lifetime —
// the connection scheduler's timers chief among them — and exposes it to
// two different callers over the same gRPC endpoint: peer aggregators
// dispatching a leg this domain provides, and this domain's own operator
// CLI (cmd/aggnsa) issuing Reserve/Provision/etc. against it.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/aggnsa/aggnsa/pkg/aggregator"
	"github.com/aggnsa/aggnsa/pkg/audit"
	"github.com/aggnsa/aggnsa/pkg/auth"
	"github.com/aggnsa/aggnsa/pkg/local"
	"github.com/aggnsa/aggnsa/pkg/peer"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/settings"
	"github.com/aggnsa/aggnsa/pkg/store"
	"github.com/aggnsa/aggnsa/pkg/topology"
	"github.com/aggnsa/aggnsa/pkg/util"
	"github.com/aggnsa/aggnsa/pkg/version"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "aggnsad",
		Short:         "aggnsa aggregator daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default "+settings.DefaultSettingsPath()+")")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := loadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if cfg.NSA == "" {
		return fmt.Errorf("settings: nsa is required")
	}
	if cfg.TopologyFile == "" {
		return fmt.Errorf("settings: topology_file is required")
	}

	topo, err := topology.Load(cfg.TopologyFile)
	if err != nil {
		return fmt.Errorf("loading topology from %s: %w", cfg.TopologyFile, err)
	}

	auditLogger, err := audit.NewFileLogger(cfg.GetAuditLogPath(), audit.RotationConfig{
		MaxSize:    int64(cfg.GetAuditMaxSizeMB()) * 1024 * 1024,
		MaxBackups: cfg.GetAuditMaxBackups(),
	})
	if err != nil {
		util.Logger.Warnf("aggnsad: could not initialize audit logging: %v", err)
	} else {
		audit.SetDefaultLogger(auditLogger)
		defer auditLogger.Close()
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	st := store.NewRedisStore(redisClient)

	reg := registry.New()
	local.New(topo).RegisterOn(reg)

	pool := peer.NewPool()
	for peerNSA, addr := range cfg.Peers {
		client, err := peer.NewClient(context.Background(), peerNSA, addr, nil)
		if err != nil {
			return fmt.Errorf("dialing peer %s at %s: %w", peerNSA, addr, err)
		}
		pool.Add(client)
	}
	pool.RegisterOn(reg)

	checker := auth.NewChecker(cfg.AuthPolicy())
	agg := aggregator.New(st, topo, reg, checker, cfg.NSA)
	agg.RegisterOn(reg)

	lis, err := net.Listen("tcp", cfg.GetListenAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GetListenAddr(), err)
	}

	grpcServer := grpc.NewServer()
	peer.NewServer(reg).Register(grpcServer)

	util.WithField("nsa", cfg.NSA).WithField("addr", cfg.GetListenAddr()).
		Infof("aggnsad: serving")

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		util.Logger.Infof("aggnsad: received %s, shutting down", sig)
		grpcServer.GracefulStop()
		return nil
	}
}

func loadSettings() (*settings.Settings, error) {
	if configPath != "" {
		return settings.LoadFrom(configPath)
	}
	return settings.Load()
}
