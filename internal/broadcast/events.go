package broadcast

import (
	"encoding/json"

	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// 推送事件类型
const (
	EventNewToken     = "NEW_TOKEN"
	EventBoostUpdate  = "BOOST_UPDATE"
	EventVoteUpdate   = "VOTE_UPDATE"
	EventPinUpdate    = "PIN_UPDATE"
	EventPinExpired   = "PIN_EXPIRED"
	EventTokenDeleted = "TOKEN_DELETED"
)

// VotePayload VOTE_UPDATE 事件内容
type VotePayload struct {
	TokenAddress string `json:"tokenAddress"`
	Upvotes      int64  `json:"upvotes"`
	Downvotes    int64  `json:"downvotes"`
}

// AddressPayload 仅携带代币地址的事件内容（PIN_EXPIRED / TOKEN_DELETED）
type AddressPayload struct {
	TokenAddress string `json:"tokenAddress"`
}

// Envelope 推送事件信封，所有订阅者收到同一份序列化结果
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Marshal 序列化事件
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.Error().Err(err).Str("type", e.Type).Msg("marshal event failed")
		return nil, err
	}
	return data, nil
}
