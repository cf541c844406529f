package market

import "fmt"

// Instrument 标识报价腿（Primary）与对冲腿（Hedge），仅此两种。
type Instrument int

const (
	Primary Instrument = iota
	Hedge
)

// DefaultDepth 每侧保留的档位数 K。
const DefaultDepth = 5

// DefaultLotSize 计算 effective mid 时 size=0 的兜底数量。
const DefaultLotSize = 10

func (i Instrument) String() string {
	switch i {
	case Primary:
		return "PRIMARY"
	case Hedge:
		return "HEDGE"
	default:
		return fmt.Sprintf("INSTRUMENT(%d)", int(i))
	}
}

// Valid 判断是否为已知品种。
func (i Instrument) Valid() bool {
	return i == Primary || i == Hedge
}
