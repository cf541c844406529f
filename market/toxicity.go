package market

// VolumeBucket 一个等量成交桶内主动买卖量。
type VolumeBucket struct {
	BuyVolume  int64 `json:"buyVolume"`
	SellVolume int64 `json:"sellVolume"`
}

func (b VolumeBucket) total() int64 { return b.BuyVolume + b.SellVolume }

// Toxicity estimates VPIN (volume-synchronized probability of informed
// trading) from aggregated trade ticks. Trades on the ask side count as
// buyer-initiated, trades on the bid side as seller-initiated. Ticks are cut
// into buckets of equal volume, splitting a tick across buckets when needed.
// Owned by the event loop; not safe for concurrent use.
type Toxicity struct {
	bucketSize int64
	maxBuckets int
	threshold  float64

	buckets []VolumeBucket
	current VolumeBucket
	vpin    float64
}

// NewToxicity 非法参数退回默认：桶 50 手、保留 20 桶、阈值 0.6。
func NewToxicity(bucketSize int64, maxBuckets int, threshold float64) *Toxicity {
	if bucketSize <= 0 {
		bucketSize = 50
	}
	if maxBuckets <= 0 {
		maxBuckets = 20
	}
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Toxicity{
		bucketSize: bucketSize,
		maxBuckets: maxBuckets,
		threshold:  threshold,
		buckets:    make([]VolumeBucket, 0, maxBuckets),
	}
}

// AddTicks 处理一条聚合成交推送。
func (t *Toxicity) AddTicks(ticks Snapshot) {
	for _, l := range ticks.Asks {
		t.add(l.Volume, true)
	}
	for _, l := range ticks.Bids {
		t.add(l.Volume, false)
	}
}

// AddTrade adds one trade; isBuy marks a buyer-initiated trade.
func (t *Toxicity) AddTrade(volume int64, isBuy bool) {
	t.add(volume, isBuy)
}

func (t *Toxicity) add(volume int64, isBuy bool) {
	for volume > 0 {
		room := t.bucketSize - t.current.total()
		take := min(room, volume)
		if isBuy {
			t.current.BuyVolume += take
		} else {
			t.current.SellVolume += take
		}
		volume -= take
		if t.current.total() >= t.bucketSize {
			t.buckets = append(t.buckets, t.current)
			if len(t.buckets) > t.maxBuckets {
				t.buckets = t.buckets[1:]
			}
			t.current = VolumeBucket{}
			t.calculate()
		}
	}
}

func (t *Toxicity) calculate() {
	var imbalance, total int64
	for _, b := range t.buckets {
		d := b.BuyVolume - b.SellVolume
		if d < 0 {
			d = -d
		}
		imbalance += d
		total += b.total()
	}
	if total == 0 {
		t.vpin = 0
		return
	}
	t.vpin = float64(imbalance) / float64(total)
}

// VPIN 最近一次完成桶后的估计值，范围 [0, 1]。
func (t *Toxicity) VPIN() float64 { return t.vpin }

// Ready 至少攒满一半的桶。
func (t *Toxicity) Ready() bool { return len(t.buckets) >= (t.maxBuckets+1)/2 }

// Toxic 已就绪且 VPIN 超过阈值。
func (t *Toxicity) Toxic() bool { return t.Ready() && t.vpin > t.threshold }

// Reset clears all buckets and resets VPIN
func (t *Toxicity) Reset() {
	t.buckets = t.buckets[:0]
	t.current = VolumeBucket{}
	t.vpin = 0
}
