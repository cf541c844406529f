package store

import "time"

// Record 可写入日志的记录，统一以指针传入。
type Record interface {
	TableName() string
}

// FillRecord 报价单的一次成交。
type FillRecord struct {
	ID         uint   `gorm:"primaryKey"`
	OrderID    uint64 `gorm:"index"`
	Instrument string
	Side       string
	Price      int64
	Volume     int64
	Seq        int64
	CreatedAt  time.Time
}

func (*FillRecord) TableName() string { return "fills" }

// HedgeRecord 对冲单从发出到完结。
type HedgeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint64 `gorm:"index"`
	Side      string
	Price     int64
	Volume    int64
	Filled    int64
	Delta     int64 // 发单时的净敞口
	Event     string
	Seq       int64
	CreatedAt time.Time
}

func (*HedgeRecord) TableName() string { return "hedges" }

// StatusRecord 订单状态回报。
type StatusRecord struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint64 `gorm:"index"`
	Status    string
	Filled    int64
	Remaining int64
	Fees      int64
	Seq       int64
	CreatedAt time.Time
}

func (*StatusRecord) TableName() string { return "statuses" }
