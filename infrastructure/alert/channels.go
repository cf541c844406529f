package alert

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
)

// ZapChannel 把告警写进结构化日志。
type ZapChannel struct {
	logger *logger.Logger
	name   string
}

func NewZapChannel(name string, log *logger.Logger) *ZapChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &ZapChannel{logger: log.Named("alert"), name: name}
}

func (c *ZapChannel) Send(alert Alert) error {
	fields := make([]zap.Field, 0, len(alert.Fields)+2)
	fields = append(fields, zap.String("level", string(alert.Level)), zap.Time("alert_ts", alert.Timestamp))
	for k, v := range alert.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch alert.Level {
	case LevelCritical, LevelError:
		c.logger.Error(alert.Message, fields...)
	case LevelWarning:
		c.logger.Warn(alert.Message, fields...)
	default:
		c.logger.Info(alert.Message, fields...)
	}
	return nil
}

func (c *ZapChannel) Name() string { return c.name }

// MockChannel 模拟告警通道（用于测试），可被多个 goroutine 使用。
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// GetAlerts 返回收到告警的拷贝
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	c.shouldErr = shouldErr
	c.mu.Unlock()
}

func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
