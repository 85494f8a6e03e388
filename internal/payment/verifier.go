package payment

import (
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/utrading/utrading-boost-monitor/internal/monitor"
)

const lamportsPerSol = 1_000_000_000

// Verifier 链上余额校验
// 只做余额比对，不关联具体交易：到账约等于 cost 即认为该订单已支付。
// 这是已知的弱点（无法区分“这笔订单的支付”和“恰好差不多数额的转账”），
// 按设计保留，容差用于吸收精度与手续费误差，不防多付/少付
type Verifier struct {
	http      *resty.Client
	rpcURL    string
	tolerance float64
}

// NewVerifier 创建校验器
func NewVerifier(rpcURL string, tolerance float64, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tolerance <= 0 {
		tolerance = 0.001
	}
	return &Verifier{
		http:      resty.New().SetTimeout(timeout),
		rpcURL:    rpcURL,
		tolerance: tolerance,
	}
}

// CheckPaid 查询地址余额并与订单金额比对
// |余额(SOL) - cost| <= tolerance 视为已支付
func (v *Verifier) CheckPaid(address string, cost float64) (bool, error) {
	balance, err := v.getBalance(address)
	if err != nil {
		monitor.IncBalanceCheck("error")
		return false, err
	}

	paid := math.Abs(balance-cost) <= v.tolerance
	if paid {
		monitor.IncBalanceCheck("paid")
	} else {
		monitor.IncBalanceCheck("unpaid")
	}
	return paid, nil
}

// getBalance Solana JSON-RPC getBalance，返回 SOL
func (v *Verifier) getBalance(address string) (float64, error) {
	resp, err := v.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "getBalance",
			"params":  []string{address},
		}).
		Post(v.rpcURL)
	if err != nil {
		monitor.IncFeedError("rpc")
		return 0, fmt.Errorf("get balance %s: %w", address, err)
	}
	if !resp.IsSuccess() {
		monitor.IncFeedError("rpc")
		return 0, fmt.Errorf("get balance %s: status %d", address, resp.StatusCode())
	}

	parsed := gjson.ParseBytes(resp.Body())
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		monitor.IncFeedError("rpc")
		return 0, fmt.Errorf("get balance %s: rpc error: %s", address, rpcErr.Get("message").String())
	}

	value := parsed.Get("result.value")
	if !value.Exists() {
		monitor.IncFeedError("rpc")
		return 0, fmt.Errorf("get balance %s: malformed rpc response", address)
	}

	return value.Float() / lamportsPerSol, nil
}
