package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tusflow/internal/client"
	"tusflow/internal/infrastructure/partition"
	"tusflow/internal/pkg/config"
	"tusflow/pkg/constants"
)

func main() {
	cfg := config.Load()

	server := flag.String("server", "http://localhost"+":"+cfg.Server.Port+cfg.Client.Endpoint, "upload endpoint")
	filesFlag := flag.String("files", "", "comma-separated list of file paths to upload")
	withFilename := flag.String("with-filename", cfg.Client.WithFilename, "filename strategy: default|original")
	onDuplicate := flag.String("on-duplicate", cfg.Client.OnDuplicate, "duplicate strategy: prevent|number")
	destinationPath := flag.String("destination-path", cfg.Client.DestinationPath, "destination subdirectory under the server's mount path")
	maxStreamCount := flag.Int("max-stream-count", cfg.Client.MaxStreamCount, "concurrent-stream budget for batch selection")
	maxFileSelection := flag.Int("max-file-selection", cfg.Client.MaxFileSelection, "cap on candidates considered per batch-selection round")
	flag.Parse()

	if *filesFlag == "" {
		log.Fatal("no files given; pass -files=a.mp4,b.zip")
	}
	paths := strings.Split(*filesFlag, ",")

	session := client.NewSession(*server, cfg.Client.RetryDelays)
	policy := partition.Default{}
	sched := client.NewScheduler(session, policy, *withFilename, *onDuplicate, *destinationPath, *maxStreamCount, *maxFileSelection)

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			log.Fatalf("stat %s: %v", p, err)
		}
		qf := sched.Enqueue(p, info.Size())
		log.Printf("queued %s (%d bytes) as %s", p, info.Size(), qf.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("interrupt received, cancelling in-flight sessions")
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				log.Fatalf("upload run failed: %v", err)
			}
			reportFinal(sched)
			return
		case <-ticker.C:
			reportProgress(sched)
		}
	}
}

func reportProgress(sched *client.Scheduler) {
	active := sched.Snapshot()
	for _, qf := range active {
		if qf.Status == constants.StatusUploading {
			fmt.Printf("\r%s: %d%%", qf.Filename, qf.Progress)
		}
	}
}

func reportFinal(sched *client.Scheduler) {
	for _, qf := range sched.Snapshot() {
		switch qf.Status {
		case constants.StatusCompleted:
			log.Printf("%s: done", qf.Filename)
		case constants.StatusError:
			log.Printf("%s: failed: %v", qf.Filename, qf.Err)
		}
	}
}
