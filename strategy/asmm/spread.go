package asmm

import (
	"errors"
	"math"
)

// ErrNoLiquidity κ <= 0：窗口内没有成交量，A-S 价差无定义。
var ErrNoLiquidity = errors.New("no traded volume for spread")

// avellanedaStoikov δ = γσ²(T-t) + (2/γ)·ln(1 + γ/κ)
func avellanedaStoikov(gamma, sigma2, t, kappa float64) (float64, error) {
	if kappa <= 0 {
		return 0, ErrNoLiquidity
	}
	return gamma*sigma2*t + 2*math.Log(1+gamma/kappa)/gamma, nil
}

// RoundBid 向下取整到最小变动价位。
func RoundBid(price float64, tick int64) int64 {
	return int64(math.Floor(price/float64(tick))) * tick
}

// RoundAsk 向上取整到最小变动价位。
func RoundAsk(price float64, tick int64) int64 {
	return int64(math.Ceil(price/float64(tick))) * tick
}
