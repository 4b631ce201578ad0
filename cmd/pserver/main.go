package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/config"
	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/pserver"
	"github.com/cuemby/chubaodb-go/pkg/pservice"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pserver",
	Short:   "Partition Server node: holds and serves document partitions",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("pserver version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to pserver.yaml config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(offloadCmd)
	rootCmd.AddCommand(loadCmd)
}

func loadConfig() (config.Node, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Node{}, err
	}
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Register with the master and serve the PS RPC surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc := pservice.New(pservice.Config{
			Meta:              meta.NewHTTPClient(cfg.MetaAddr),
			IP:                cfg.IP,
			RPCPort:           cfg.RPCPort,
			DataDir:           cfg.DataDir,
			RaftBindHost:      cfg.RaftBindHost,
			RaftBasePort:      cfg.RaftBasePort,
			HeartbeatInterval: cfg.HeartbeatInterval,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = svc.Init(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("register with master: %w", err)
		}
		log.Info(fmt.Sprintf("registered with master as node %d", svc.ServerID()))

		rpcAddr := fmt.Sprintf("%s:%d", cfg.IP, cfg.RPCPort)
		srv := pserver.NewServer(svc, rpcAddr)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("shutting down")
		case err := <-errCh:
			log.Error(fmt.Sprintf("RPC server error: %v", err))
		}

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = srv.Stop(stopCtx)
		svc.Stop()
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status --addr ADDR",
	Short: "Query a running node's status over the PS RPC surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		client := pserver.NewHTTPClient(nil)

		resp, err := client.Status(cmd.Context(), addr)
		if err != nil {
			return err
		}
		fmt.Printf("code: %s\n", resp.Code)
		if resp.Message != "" {
			fmt.Printf("message: %s\n", resp.Message)
		}
		return nil
	},
}

var offloadCmd = &cobra.Command{
	Use:   "offload --addr ADDR --collection-id ID --partition-id ID",
	Short: "Offload a partition from a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		collID, _ := cmd.Flags().GetUint32("collection-id")
		partID, _ := cmd.Flags().GetUint32("partition-id")

		req := pserver.OffloadPartitionRequest{CPID: types.CPID{CollectionID: collID, PartitionID: partID}}
		return postRPC(cmd.Context(), addr, "/rpc/offload_partition", req)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load --addr ADDR --collection-id ID --partition-id ID",
	Short: "Load a partition onto a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		collID, _ := cmd.Flags().GetUint32("collection-id")
		partID, _ := cmd.Flags().GetUint32("partition-id")
		version, _ := cmd.Flags().GetUint64("version")

		req := pserver.LoadPartitionRequest{CollectionID: collID, PartitionID: partID, Version: version}
		return postRPC(cmd.Context(), addr, "/rpc/load_partition", req)
	},
}

func init() {
	statusCmd.Flags().String("addr", "127.0.0.1:8700", "Target node's RPC address")

	for _, c := range []*cobra.Command{offloadCmd, loadCmd} {
		c.Flags().String("addr", "127.0.0.1:8700", "Target node's RPC address")
		c.Flags().Uint32("collection-id", 0, "Collection id")
		c.Flags().Uint32("partition-id", 0, "Partition id")
	}
	loadCmd.Flags().Uint64("version", 0, "Partition version to load at")
}

// postRPC is a thin, operator-facing helper for the offload/load admin
// commands, which (unlike status/write/get/search) have no typed response
// payload worth decoding beyond success/failure.
func postRPC(ctx context.Context, addr, path string, body interface{}) error {
	client := pserver.NewHTTPClient(nil)
	return client.PostAdmin(ctx, addr, path, body)
}
