package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"pair-maker-go/internal/store"
)

func main() {
	dbPath := flag.String("journal", "data/journal.db", "成交日志数据库路径")
	sinceStr := flag.String("since", "", "仅统计此时间之后的记录 (RFC3339，例如 2025-11-22T00:00:00Z)")
	primaryMid := flag.Float64("primary-mid", 0, "报价腿估值用 mid，0 则不计未实现盈亏")
	hedgeMid := flag.Float64("hedge-mid", 0, "对冲腿估值用 mid")
	asJSON := flag.Bool("json", false, "以 JSON 输出")
	flag.Parse()

	var since time.Time
	var err error
	if *sinceStr != "" {
		since, err = time.Parse(time.RFC3339Nano, *sinceStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析 since 参数失败: %v\n", err)
			os.Exit(1)
		}
	}

	r, err := load(*dbPath, since, [2]float64{*primaryMid, *hedgeMid})
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取成交日志出错: %v\n", err)
		os.Exit(1)
	}
	printReport(r, *dbPath, since, *asJSON)
}

func load(path string, since time.Time, mids [2]float64) (report, error) {
	if _, err := os.Stat(path); err != nil {
		return report{}, err
	}
	j, err := store.Open(path, store.Options{})
	if err != nil {
		return report{}, err
	}
	defer j.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fills, err := j.Fills(ctx)
	if err != nil {
		return report{}, fmt.Errorf("fills: %w", err)
	}
	hedges, err := j.Hedges(ctx)
	if err != nil {
		return report{}, fmt.Errorf("hedges: %w", err)
	}
	statuses, err := j.Statuses(ctx)
	if err != nil {
		return report{}, fmt.Errorf("statuses: %w", err)
	}
	return buildReport(fills, hedges, statuses, since, mids), nil
}

func printReport(r report, path string, since time.Time, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}
	fmt.Printf("统计文件: %s\n", path)
	if !since.IsZero() {
		fmt.Printf("起始时间: %s\n", since.Format(time.RFC3339))
	}
	fmt.Printf("成交笔数: %d (买 %d 手 / 卖 %d 手)\n", r.Fills, r.BuyVolume, r.SellVolume)
	fmt.Printf("买单名义: %s\n", r.BuyNotional)
	fmt.Printf("卖单名义: %s\n", r.SellNotional)
	fmt.Printf("净成交差额: %s\n", r.SellNotional.Sub(r.BuyNotional))
	fmt.Printf("对冲成交: %d, 未成交/被拒: %d\n", r.Hedges, r.HedgeMisses)
	for _, inst := range []string{"PRIMARY", "HEDGE"} {
		fmt.Printf("仓位 %s: %d\n", inst, r.Statement.Positions[inst])
	}
	fmt.Printf("已实现盈亏: %s\n", r.Statement.Realized)
	fmt.Printf("未实现盈亏: %s\n", r.Statement.Unrealized)
	fmt.Printf("手续费: %s\n", r.Statement.Fees)
	fmt.Printf("净盈亏: %s\n", r.Statement.Net)
}
