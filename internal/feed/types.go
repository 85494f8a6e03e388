package feed

// BoostEvent 聚合器 boost 列表中的一条记录（已通过入口校验）
type BoostEvent struct {
	TokenAddress string  `json:"tokenAddress"`
	ChainID      string  `json:"chainId"`
	Amount       float64 `json:"amount"`      // 最近一批 boost 数
	TotalAmount  float64 `json:"totalAmount"` // 累计 boost 数
	Icon         string  `json:"icon"`
	Header       string  `json:"header"`
	Description  string  `json:"description"`
	Links        []Link  `json:"links"`
}

// Link 聚合器返回的原始社交链接，type 或 label 二选一
type Link struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Pair 代币详情接口返回的单个交易对
type Pair struct {
	ChainID   string    `json:"chainId"`
	DexID     string    `json:"dexId"`
	PriceUsd  string    `json:"priceUsd"` // 聚合器以字符串返回
	BaseToken BaseToken `json:"baseToken"`
	MarketCap float64   `json:"marketCap"`
	Liquidity Liquidity `json:"liquidity"`
	Volume    Volume    `json:"volume"`
	Info      *PairInfo `json:"info,omitempty"`
}

type BaseToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Liquidity struct {
	Usd float64 `json:"usd"`
}

type Volume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
}

// PairInfo 详情里的展示信息
type PairInfo struct {
	ImageURL string     `json:"imageUrl"`
	Header   string     `json:"header"`
	Websites []PairLink `json:"websites"`
	Socials  []PairLink `json:"socials"`
}

type PairLink struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}
