package market

import "errors"

// ErrNoTrades 窗口为空时无法估计方差。
var ErrNoTrades = errors.New("no trade samples")

// Variance returns the population variance of the window's prices expressed
// in ticks (price/tick). Every sample weighs the same regardless of volume.
func (w *TradeWindow) Variance(tick int64) (float64, error) {
	n := len(w.samples)
	if n == 0 {
		return 0, ErrNoTrades
	}
	if tick <= 0 {
		tick = 1
	}
	t := float64(tick)

	mean := 0.0
	for _, s := range w.samples {
		mean += float64(s.Price) / t
	}
	mean /= float64(n)

	sum := 0.0
	for _, s := range w.samples {
		d := float64(s.Price)/t - mean
		sum += d * d
	}
	return sum / float64(n), nil
}
