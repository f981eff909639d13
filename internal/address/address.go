// 包 address：把服务商的结构化地址组件归一为网关对外的统一地址形态
package address

import "geo-gateway/internal/provider"

// Result：归一化地址
// 约束：缺失字段保持空串，绝不为空指针；Pincode 即邮政编码，沿用业务侧叫法
type Result struct {
	FormattedAddress string `json:"formatted_address"`
	Street           string `json:"street"`
	City             string `json:"city"`
	State            string `json:"state"`
	Pincode          string `json:"pincode"`
	Country          string `json:"country"`
	PlaceID          string `json:"place_id"`
}

// 文档注释：地址组件解析
// 背景：服务商返回的组件顺序与齐全程度都不保证，解析按出现顺序单趟扫描，
// 对缺失与多余组件都要容错。
// 约束：street_number/route 按出现顺序拼接；城市优先取 locality，
// administrative_area_level_2/sublocality 只在城市尚未落定时兜底；
// 州、邮编、国家取首个匹配。每个组件按首个类型标签归类。
func Parse(res *provider.GeocodeResult) Result {
	out := Result{
		FormattedAddress: res.FormattedAddress,
		PlaceID:          res.PlaceID,
	}
	for _, comp := range res.AddressComponents {
		if len(comp.Types) == 0 {
			continue
		}
		switch comp.Types[0] {
		case "street_number", "route":
			if out.Street == "" {
				out.Street = comp.LongName
			} else {
				out.Street = out.Street + " " + comp.LongName
			}
		case "locality":
			out.City = comp.LongName
		case "administrative_area_level_2", "sublocality":
			if out.City == "" {
				out.City = comp.LongName
			}
		case "administrative_area_level_1":
			if out.State == "" {
				out.State = comp.LongName
			}
		case "postal_code":
			if out.Pincode == "" {
				out.Pincode = comp.LongName
			}
		case "country":
			if out.Country == "" {
				out.Country = comp.LongName
			}
		}
	}
	return out
}
