package market

// Publisher 一个轻量事件分发器，订阅者处理不过来时直接丢弃。
type Publisher struct {
	bookSubs  []chan Snapshot
	tradeSubs []chan TradeSample
}

func NewPublisher() *Publisher {
	return &Publisher{
		bookSubs:  make([]chan Snapshot, 0),
		tradeSubs: make([]chan TradeSample, 0),
	}
}

// SubscribeBooks 需在事件循环启动前调用。
func (p *Publisher) SubscribeBooks(buffer int) <-chan Snapshot {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	p.bookSubs = append(p.bookSubs, ch)
	return ch
}

func (p *Publisher) SubscribeTrades(buffer int) <-chan TradeSample {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan TradeSample, buffer)
	p.tradeSubs = append(p.tradeSubs, ch)
	return ch
}

func (p *Publisher) PublishBook(s Snapshot) {
	for _, ch := range p.bookSubs {
		select {
		case ch <- s.clone():
		default:
		}
	}
}

func (p *Publisher) PublishTrade(t TradeSample) {
	for _, ch := range p.tradeSubs {
		select {
		case ch <- t:
		default:
		}
	}
}
