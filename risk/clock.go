package risk

import "time"

// Clock 限频用的时间源，测试里换成固定时钟。
type Clock interface {
	Now() time.Time
}

// ClockFunc 把函数适配成 Clock。
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 墙钟。
var SystemClock Clock = ClockFunc(time.Now)
