package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/internal/engine"
)

// Sink 接收热更新产生的 ParamsUpdate，通常是 *engine.Engine。
type Sink interface {
	Submit(ev engine.Event) bool
}

// Watcher reloads the config file when it changes and hands the tunable
// sections to the engine as a ParamsUpdate. Sections that only take effect
// at startup keep their running values and are reported as needing a
// restart.
type Watcher struct {
	path     string
	debounce time.Duration
	sink     Sink
	logger   *logger.Logger
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	current    AppConfig
	lastReload time.Time
	reloads    int
	failures   int
	closeOnce  sync.Once
}

// NewWatcher 监听配置文件所在目录（编辑器常用 rename 方式保存）。
func NewWatcher(path string, current AppConfig, sink Sink, log *logger.Logger) (*Watcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("config watcher: sink is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	return &Watcher{
		path:     abs,
		debounce: current.Agent.Watch.Debounce,
		sink:     sink,
		logger:   log.Named("config"),
		watcher:  fw,
		current:  current,
	}, nil
}

// Run 阻塞直到 ctx 结束；连续写入在 debounce 静默期后合并为一次重载。
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if w.debounce <= 0 {
				_ = w.Reload()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.Reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Reload 读取并校验配置，成功后提交 ParamsUpdate。
func (w *Watcher) Reload() error {
	next, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.mu.Lock()
		w.failures++
		w.mu.Unlock()
		w.logger.Warn("config reload rejected", zap.Error(err))
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if changed := restartOnly(w.current, next); len(changed) > 0 {
		w.logger.Warn("config changes need a restart, keeping running values", zap.Strings("sections", changed))
	}
	pinned := w.current
	pinned.Pricing = next.Pricing
	pinned.Quoting = next.Quoting
	pinned.Hedging = next.Hedging
	pinned.Engine.ThrottleRate = next.Engine.ThrottleRate
	pinned.Engine.SingleMax = next.Engine.SingleMax
	pinned.Engine.NetMax = min(next.Engine.NetMax, pinned.Engine.PositionLimit)

	up, err := pinned.Update()
	if err != nil {
		w.failures++
		w.logger.Warn("config reload rejected", zap.Error(err))
		return err
	}
	if !w.sink.Submit(up) {
		w.failures++
		w.logger.Warn("engine not accepting params update")
		return fmt.Errorf("config reload: engine not accepting updates")
	}
	w.current = pinned
	w.lastReload = time.Now()
	w.reloads++
	w.logger.Info("config reloaded",
		zap.Float64("gamma", next.Pricing.Gamma),
		zap.Int64("cooldown", next.Hedging.Cooldown),
		zap.String("sizing", next.Quoting.Sizing),
	)
	return nil
}

// Close 可重复调用。
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.watcher.Close() })
	return err
}

// GetLastReloadTime 获取最后重载时间
func (w *Watcher) GetLastReloadTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}

// Stats 成功/失败的重载次数。
func (w *Watcher) Stats() (reloads, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads, w.failures
}

// Current 当前生效的配置。
func (w *Watcher) Current() AppConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func restartOnly(cur, next AppConfig) []string {
	var changed []string
	if cur.Engine.PositionLimit != next.Engine.PositionLimit ||
		cur.Engine.TickSize != next.Engine.TickSize ||
		cur.Engine.TradeWindow != next.Engine.TradeWindow ||
		cur.Engine.InboxSize != next.Engine.InboxSize ||
		cur.Engine.MinPrice != next.Engine.MinPrice ||
		cur.Engine.MaxPrice != next.Engine.MaxPrice ||
		cur.Engine.ThrottleBurst != next.Engine.ThrottleBurst ||
		cur.Engine.MaxLoss != next.Engine.MaxLoss ||
		cur.Engine.Circuit != next.Engine.Circuit ||
		!slices.Equal(cur.Engine.MarkoutWindow, next.Engine.MarkoutWindow) {
		changed = append(changed, "engine")
	}
	if cur.Agent != next.Agent {
		changed = append(changed, "agent")
	}
	if cur.Venue != next.Venue {
		changed = append(changed, "venue")
	}
	if cur.Journal != next.Journal {
		changed = append(changed, "journal")
	}
	if cur.Metrics != next.Metrics {
		changed = append(changed, "metrics")
	}
	if cur.Alert != next.Alert {
		changed = append(changed, "alert")
	}
	if !reflect.DeepEqual(cur.Log, next.Log) {
		changed = append(changed, "log")
	}
	return changed
}
