package monitor

// 便捷函数供外部调用，无需访问 Metrics 实例

// IncHunterTick 增加 tick 计数
func IncHunterTick() {
	GetMetrics().IncHunterTick()
}

// ObserveHunterTickDuration 观察 tick 耗时（秒）
func ObserveHunterTickDuration(seconds float64) {
	GetMetrics().ObserveHunterTickDuration(seconds)
}

// IncTokensUpserted 增加代币落库计数
func IncTokensUpserted(kind string) {
	GetMetrics().IncTokensUpserted(kind)
}

// IncFeedError 增加外部接口失败计数
func IncFeedError(endpoint string) {
	GetMetrics().IncFeedError(endpoint)
}

// AddTokensPurged 增加清理计数
func AddTokensPurged(count int) {
	GetMetrics().AddTokensPurged(count)
}

// SetSubscribers 设置订阅者数量
func SetSubscribers(count int) {
	GetMetrics().SetSubscribers(count)
}

// IncBroadcast 增加广播计数
func IncBroadcast(event string) {
	GetMetrics().IncBroadcast(event)
}

// IncOrdersCreated 增加订单创建计数
func IncOrdersCreated() {
	GetMetrics().IncOrdersCreated()
}

// IncOrderTransition 增加订单状态转移计数
func IncOrderTransition(status string) {
	GetMetrics().IncOrderTransition(status)
}

// IncBalanceCheck 增加余额查询计数
func IncBalanceCheck(result string) {
	GetMetrics().IncBalanceCheck(result)
}

// IncCacheHit 增加缓存命中计数
func IncCacheHit(cacheType string) {
	GetMetrics().IncCacheHit(cacheType)
}

// IncCacheMiss 增加缓存未命中计数
func IncCacheMiss(cacheType string) {
	GetMetrics().IncCacheMiss(cacheType)
}
