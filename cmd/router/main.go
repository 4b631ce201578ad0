package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/pserver"
	"github.com/cuemby/chubaodb-go/pkg/router"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "router",
	Short:   "Document API router: resolves collection placement and dispatches to partition servers",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("router version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	asJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: asJSON})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		metaAddr, _ := cmd.Flags().GetString("meta-addr")

		m := meta.NewHTTPClient(metaAddr)
		ps := pserver.NewHTTPClient(&http.Client{Timeout: 10 * time.Second})
		srv := router.NewServer(m, ps, addr)

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
			log.Error(fmt.Sprintf("router server error: %v", err))
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(stopCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8800", "Address to listen on")
	serveCmd.Flags().String("meta-addr", "http://127.0.0.1:8900", "Master meta service base URL")
}
