package pinorder

import (
	"github.com/utrading/utrading-boost-monitor/internal/dao"
)

// CapacityPolicy 决定一个代币此刻能否获得（或延长）置顶
type CapacityPolicy interface {
	Allow(tokenAddress string, nowMs int64) (bool, error)
}

// MaxPinnedPolicy 固定上限策略：同时处于置顶期的代币不超过 max 个
// 已置顶代币的续期不占新名额
type MaxPinnedPolicy struct {
	max int
}

// NewMaxPinnedPolicy 创建上限策略，max <= 0 表示不限制
func NewMaxPinnedPolicy(max int) *MaxPinnedPolicy {
	return &MaxPinnedPolicy{max: max}
}

func (p *MaxPinnedPolicy) Allow(tokenAddress string, nowMs int64) (bool, error) {
	if p.max <= 0 {
		return true, nil
	}

	token, err := dao.Token().Get(tokenAddress)
	if err != nil {
		return false, err
	}
	if token != nil && token.IsPinned(nowMs) {
		return true, nil
	}

	count, err := dao.Token().CountPinned(nowMs)
	if err != nil {
		return false, err
	}
	return count < int64(p.max), nil
}
