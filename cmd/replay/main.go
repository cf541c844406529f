package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"pair-maker-go/config"
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/internal/engine"
	"pair-maker-go/sim"
)

func main() {
	input := flag.String("input", "-", "录制文件（JSON lines），- 为标准输入")
	cfgPath := flag.String("config", "", "可选：使用配置文件里的交易参数")
	level := flag.String("log-level", "warn", "日志级别")
	flag.Parse()

	lcfg := logger.DefaultConfig()
	lcfg.Level = *level
	lcfg.Format = "console"
	lcfg.Outputs = []string{"stderr"}
	lg, err := logger.New(lcfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	params := engine.DefaultParams()
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		if params, err = cfg.Params(); err != nil {
			log.Fatalf("配置转换失败: %v", err)
		}
	}

	var src io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("打开录制文件失败: %v", err)
		}
		defer f.Close()
		src = f
	}

	runner, err := sim.BuildRunner(params, lg)
	if err != nil {
		log.Fatalf("初始化回放失败: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, runErr := runner.Run(ctx, sim.NewReplayer(src))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		lg.LogError(err)
	}
	if runErr != nil {
		lg.Error("replay stopped", zap.Error(runErr))
		stop()
		os.Exit(1)
	}
}
