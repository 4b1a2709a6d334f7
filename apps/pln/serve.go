package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/sword"
	"github.com/pkp/pln/workers"
	"github.com/spf13/cobra"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the SWORD server",
		Args:  cobra.NoArgs,
		RunE:  withContext(runServe),
	}

	consumeCmd = &cobra.Command{
		Use:   "consume <stage>",
		Short: "Process deposits for a stage as they are announced on NSQ",
		Args:  cobra.ExactArgs(1),
		RunE:  withContext(runConsume),
	}

	queuesCmd = &cobra.Command{
		Use:   "queues",
		Short: "Print the number of deposits waiting in each stage topic",
		Args:  cobra.NoArgs,
		RunE:  withContext(runQueues),
	}
)

func runServe(_context *context.Context, args []string) error {
	service := sword.NewService(_context)
	limiter := sword.NewRateLimiter(_context.Config.RequestsPerMinute)
	server := &http.Server{
		Addr:    _context.Config.ListenAddress,
		Handler: sword.NewRouter(service, limiter),
	}
	_context.MessageLog.Info("SWORD server listening on %s", server.Addr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		_context.MessageLog.Error("SWORD server stopped: %v", err)
		return err
	}
	return nil
}

func runConsume(_context *context.Context, args []string) error {
	stage := args[0]
	pipeline, err := workers.NewStagePipeline(_context, stage)
	if err != nil {
		return err
	}
	consumer, err := workers.NewStageConsumer(pipeline)
	if err != nil {
		return err
	}
	_context.MessageLog.Info("Connecting to NSQLookupd at %s", _context.Config.NsqLookupd)
	if err = consumer.ConnectToNSQLookupd(_context.Config.NsqLookupd); err != nil {
		return err
	}
	_context.MessageLog.Info("%s consumer started", stage)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		consumer.Stop()
	}()
	<-consumer.StopChan
	_context.MessageLog.Info("%s consumer stopped", stage)
	return nil
}

func runQueues(_context *context.Context, args []string) error {
	if _context.Config.NsqdHttpAddress == "" {
		return fmt.Errorf("NsqdHttpAddress is not configured")
	}
	nsqStats, err := network.NewNSQClient(_context.Config.NsqdHttpAddress).GetStats()
	if err != nil {
		return err
	}
	fmt.Printf("nsqd %s: %s\n", nsqStats.Data.Version, nsqStats.Data.Health)
	for _, stage := range constants.Stages {
		workerConfig, err := _context.Config.WorkerConfigFor(stage)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d\n", stage, workerConfig.NsqTopic, nsqStats.TopicDepth(workerConfig.NsqTopic))
	}
	return nil
}
