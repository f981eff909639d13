package monitor

import (
	"os"
	"strconv"
)

// 文档注释：按请求分类的单价表（美元 / 千次）
// 背景：服务商按调用计费，结合命中率估算当日实际支出与缓存节省额，供诊断页展示；
// 估算仅作提示，不做账单对账。
// 约束：单价可用 PRICE_<KIND>_PER_1K 环境变量覆盖；未知分类按 0 计。
type Pricing struct {
	perThousand map[Kind]float64
}

var defaultPerThousand = map[Kind]float64{
	KindAutocomplete:   2.83,
	KindDetails:        17.0,
	KindGeocode:        5.0,
	KindReverseGeocode: 5.0,
	KindGeolocation:    0,
}

var priceEnvNames = map[Kind]string{
	KindAutocomplete:   "PRICE_AUTOCOMPLETE_PER_1K",
	KindDetails:        "PRICE_DETAILS_PER_1K",
	KindGeocode:        "PRICE_GEOCODE_PER_1K",
	KindReverseGeocode: "PRICE_REVERSE_GEOCODE_PER_1K",
	KindGeolocation:    "PRICE_GEOLOCATION_PER_1K",
}

// PricingFromEnv：读取环境变量构造单价表
// 约束：解析失败的变量忽略并沿用默认值
func PricingFromEnv() Pricing {
	p := Pricing{perThousand: make(map[Kind]float64, len(defaultPerThousand))}
	for k, v := range defaultPerThousand {
		p.perThousand[k] = v
	}
	for k, name := range priceEnvNames {
		if s := os.Getenv(name); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
				p.perThousand[k] = f
			}
		}
	}
	return p
}

// Estimate：按计数估算已产生的费用与缓存挡下的费用
// 背景：计费调用 = 未命中缓存的那部分；命中部分按同口径折算为节省额
func (p Pricing) Estimate(m Metrics) (cost float64, saved float64) {
	for kind, total := range m.ByKind {
		price := p.perThousand[kind]
		if price == 0 {
			continue
		}
		billable := m.BillableByKind[kind]
		hits := total - billable
		if hits < 0 {
			hits = 0
		}
		cost += float64(billable) * price / 1000
		saved += float64(hits) * price / 1000
	}
	return cost, saved
}
