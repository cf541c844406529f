package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:9100", "agent 指标服务地址")
	prefix := flag.String("prefix", "mm_pair_", "只打印此前缀的指标")
	interval := flag.Duration("interval", 0, "轮询间隔，0 只探测一次")
	timeout := flag.Duration("timeout", 5*time.Second, "单次请求超时")
	flag.Parse()

	p := &prober{base: *addr, prefix: *prefix, client: &http.Client{Timeout: *timeout}}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *interval <= 0 {
		if err := probeOnce(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if err := probeOnce(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func probeOnce(ctx context.Context, p *prober) error {
	if err := p.health(ctx); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	samples, err := p.scrape(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("# %s %s (%d samples)\n", time.Now().Format(time.RFC3339), p.base, len(samples))
	for _, s := range samples {
		fmt.Println(s)
	}
	return nil
}
