package hunter

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/utrading/utrading-boost-monitor/internal/feed"
	"github.com/utrading/utrading-boost-monitor/internal/models"
)

// selectPair 在详情返回中选出目标 DEX 上的交易对
func selectPair(pairs []feed.Pair, chainID, dexID string) (feed.Pair, bool) {
	for _, pair := range pairs {
		if pair.ChainID == chainID && pair.DexID == dexID {
			return pair, true
		}
	}
	return feed.Pair{}, false
}

// buildToken 把 boost 事件与交易对详情合并为规范化代币记录
// 身份与 boost 字段来自事件，行情与展示字段来自交易对
func buildToken(event feed.BoostEvent, pair feed.Pair, nowMs int64) *models.BoostedToken {
	token := &models.BoostedToken{
		TokenAddress: event.TokenAddress,
		ChainID:      event.ChainID,
		Name:         pair.BaseToken.Name,
		Symbol:       pair.BaseToken.Symbol,
		Icon:         event.Icon,
		Header:       event.Header,
		Description:  event.Description,
		Links:        deriveLinks(event.Links),
		PriceUsd:     cast.ToFloat64(pair.PriceUsd),
		MarketCap:    pair.MarketCap,
		Liquidity:    pair.Liquidity.Usd,
		Volume24h:    pair.Volume.H24,
		Volume6h:     pair.Volume.H6,
		Volume1h:     pair.Volume.H1,
		Amount:       event.Amount,
		TotalAmount:  event.TotalAmount,
		Boosted:      nowMs,
		DateAdded:    nowMs, // 已存在的地址落库时被保留
	}

	if token.Icon == "" && pair.Info != nil {
		token.Icon = pair.Info.ImageURL
	}
	if token.Header == "" && pair.Info != nil {
		token.Header = pair.Info.Header
	}

	return token
}

// deriveLinks 社交链接归一化：
// 最多取一个 website，外加所有 telegram / twitter 链接；
// 类型既看显式 type/label 也按 URL 子串识别，统一小写
func deriveLinks(links []feed.Link) []models.SocialLink {
	var result []models.SocialLink
	haveWebsite := false

	for _, link := range links {
		if link.URL == "" {
			continue
		}

		kind := strings.ToLower(link.Type)
		if kind == "" {
			kind = strings.ToLower(link.Label)
		}
		url := strings.ToLower(link.URL)

		switch {
		case kind == "telegram" || strings.Contains(url, "t.me"):
			result = append(result, models.SocialLink{Type: "telegram", URL: link.URL})
		case kind == "twitter" || strings.Contains(url, "twitter.com") || strings.Contains(url, "x.com"):
			result = append(result, models.SocialLink{Type: "twitter", URL: link.URL})
		case kind == "website" && !haveWebsite:
			result = append(result, models.SocialLink{Type: "website", URL: link.URL})
			haveWebsite = true
		}
	}

	return result
}
