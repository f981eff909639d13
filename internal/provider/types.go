// 包 provider：地图服务商 REST 客户端与计费会话管理
// 背景：联想、正反地理编码都按调用计费，客户端是全网关唯一的出网通道，
// 统一做限速、指标与错误分类；上层服务只消费解析后的结构。
package provider

import "geo-gateway/internal/result"

// 服务商返回的状态字符串
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// 文档注释：地理编码响应结构
// 背景：对齐服务商 REST API 的返回字段，仅解析本网关需要的地址组件与坐标
// 约束：status 用于错误判定与分类；不在此处扩展对外响应模型
type geocodeResponse struct {
	Results      []GeocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

type GeocodeResult struct {
	AddressComponents []AddressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
	PlaceID           string             `json:"place_id"`
	Types             []string           `json:"types"`
}

// AddressComponent：结构化地址组件
// 约束：Types 首元素视为主类型标签，解析逻辑按主类型分类
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type Geometry struct {
	Location Coordinate `json:"location"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// 联想响应结构
type autocompleteResponse struct {
	Predictions  []Prediction `json:"predictions"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
}

// Prediction：一条联想候选
type Prediction struct {
	Description          string               `json:"description"`
	PlaceID              string               `json:"place_id"`
	StructuredFormatting StructuredFormatting `json:"structured_formatting"`
}

type StructuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// kindForStatus：状态字符串到错误分类的映射
// 约束：ZERO_RESULTS 不是错误，由调用方先行判定，不应传入此函数
func kindForStatus(status string) result.Kind {
	switch status {
	case StatusRequestDenied:
		return result.KindConfiguration
	case StatusOverQueryLimit:
		return result.KindProviderUnavailable
	case StatusInvalidRequest, StatusUnknownError:
		return result.KindUnknown
	}
	return result.KindUnknown
}
