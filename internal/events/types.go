package events

// Topic enumerates high-level topics inside the signal core.
type Topic string

const (
	TopicPriceTick    Topic = "price_tick"
	TopicSignalsRaw   Topic = "signals.raw"
	TopicSignalsFused Topic = "signals.fused"
	TopicTradeResult  Topic = "trade_result"
	TopicRiskAlert    Topic = "risk_alert"
)
