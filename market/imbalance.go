package market

// CalculateImbalance calculates the imbalance between bid and ask volumes
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol)
func CalculateImbalance(bidVolume, askVolume int64) float64 {
	total := bidVolume + askVolume
	if total <= 0 {
		return 0
	}
	return float64(bidVolume-askVolume) / float64(total)
}

// Imbalance 前 levels 档的买卖量不平衡度，范围 [-1, 1]；levels<=0 取全部档位。
func Imbalance(s Snapshot, levels int) float64 {
	return CalculateImbalance(sideVolume(s.Bids, levels), sideVolume(s.Asks, levels))
}

func sideVolume(levels []Level, n int) int64 {
	if n <= 0 || n > len(levels) {
		n = len(levels)
	}
	var v int64
	for _, l := range levels[:n] {
		v += l.Volume
	}
	return v
}
