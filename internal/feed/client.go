package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// Client 聚合器数据客户端
// 所有失败都是软失败：返回 error 由调用方记日志后等下一个 tick 重试，
// 不会把外部 IO 错误抛过这一层
type Client struct {
	http      *resty.Client
	boostsURL string
	pairsURL  string
}

// NewClient 创建客户端
func NewClient(boostsURL, pairsURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		boostsURL: boostsURL,
		pairsURL:  pairsURL,
	}
}

// FetchBoosts 拉取 boost 列表
// 响应必须是数组；地址为空、缺 chainId、计数字段非法的元素直接丢弃
func (c *Client) FetchBoosts() ([]BoostEvent, error) {
	resp, err := c.http.R().Get(c.boostsURL)
	if err != nil {
		monitor.IncFeedError("boosts")
		return nil, fmt.Errorf("fetch boosts: %w", err)
	}
	if !resp.IsSuccess() {
		monitor.IncFeedError("boosts")
		return nil, fmt.Errorf("fetch boosts: status %d", resp.StatusCode())
	}

	body := resp.Body()
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		monitor.IncFeedError("boosts")
		return nil, fmt.Errorf("fetch boosts: payload is not a list")
	}

	events := make([]BoostEvent, 0, len(parsed.Array()))
	dropped := 0
	parsed.ForEach(func(_, raw gjson.Result) bool {
		event, ok := parseBoostEvent(raw)
		if !ok {
			dropped++
			return true
		}
		events = append(events, event)
		return true
	})

	if dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("dropped malformed boost entries")
	}

	return events, nil
}

// parseBoostEvent 单条 boost 记录的形状校验
func parseBoostEvent(raw gjson.Result) (BoostEvent, bool) {
	address := raw.Get("tokenAddress").String()
	chainID := raw.Get("chainId").String()
	if address == "" || chainID == "" {
		return BoostEvent{}, false
	}

	amount, ok := numericField(raw.Get("amount"))
	if !ok {
		return BoostEvent{}, false
	}
	totalAmount, ok := numericField(raw.Get("totalAmount"))
	if !ok {
		return BoostEvent{}, false
	}

	event := BoostEvent{
		TokenAddress: address,
		ChainID:      chainID,
		Amount:       amount,
		TotalAmount:  totalAmount,
		Icon:         raw.Get("icon").String(),
		Header:       raw.Get("header").String(),
		Description:  raw.Get("description").String(),
	}

	raw.Get("links").ForEach(func(_, link gjson.Result) bool {
		event.Links = append(event.Links, Link{
			Type:  link.Get("type").String(),
			Label: link.Get("label").String(),
			URL:   link.Get("url").String(),
		})
		return true
	})

	return event, true
}

// numericField 计数字段必须是数字或可解析为数字的字符串，其余类型视为非法
func numericField(field gjson.Result) (float64, bool) {
	switch field.Type {
	case gjson.Number:
		return field.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(field.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FetchPairs 拉取某地址的全部交易对
func (c *Client) FetchPairs(address string) ([]Pair, error) {
	resp, err := c.http.R().Get(c.pairsURL + "/" + address)
	if err != nil {
		monitor.IncFeedError("pairs")
		return nil, fmt.Errorf("fetch pairs %s: %w", address, err)
	}
	if !resp.IsSuccess() {
		monitor.IncFeedError("pairs")
		return nil, fmt.Errorf("fetch pairs %s: status %d", address, resp.StatusCode())
	}

	if !gjson.ParseBytes(resp.Body()).IsArray() {
		monitor.IncFeedError("pairs")
		return nil, fmt.Errorf("fetch pairs %s: payload is not a list", address)
	}

	var pairs []Pair
	if err = json.Unmarshal(resp.Body(), &pairs); err != nil {
		monitor.IncFeedError("pairs")
		return nil, fmt.Errorf("decode pairs %s: %w", address, err)
	}

	return pairs, nil
}
