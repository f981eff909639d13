// 包 result：网关统一的三态返回模型（命中 / 无结果 / 出错）与错误分类
// 背景：网关所有异步操作以解析值而非异常向上传递结果，"无结果"与"出错"是两个
// 独立的终态，调用方按标签穷举处理，不需要 try/catch 式的兜底。
package result

// Kind：错误分类
// 约束：分类集合与对外文案一一对应，新增分类需同步补充 Message 映射
type Kind int

const (
	KindNone Kind = iota
	// KindConfiguration：服务商脚本或密钥缺失等部署配置问题
	KindConfiguration
	// KindProviderUnavailable：初始化或传输层失败
	KindProviderUnavailable
	// KindPermissionDenied：定位权限被拒绝，或服务商拒绝本密钥访问
	KindPermissionDenied
	// KindPositionUnavailable：设备无法给出位置
	KindPositionUnavailable
	// KindTimeout：定位或服务商调用超时
	KindTimeout
	// KindZeroResults：调用成功但服务商无匹配结果
	KindZeroResults
	// KindUnknown：其余未归类失败
	KindUnknown
)

// Message：错误分类对应的用户可读文案
// 背景：页面直接展示该文案，区分"权限、不可用、超时、无结果"等场景
func (k Kind) Message() string {
	switch k {
	case KindConfiguration:
		return "Map service is not configured. Check the provider API key."
	case KindProviderUnavailable:
		return "Error connecting to map service."
	case KindPermissionDenied:
		return "Location permission denied. Please enable it in browser settings."
	case KindPositionUnavailable:
		return "Location information is unavailable."
	case KindTimeout:
		return "Location request timed out."
	case KindZeroResults:
		return "No address details found for this location."
	case KindUnknown:
		return "Failed to fetch location details. Please try again."
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfiguration:
		return "configuration"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindPermissionDenied:
		return "permission_denied"
	case KindPositionUnavailable:
		return "position_unavailable"
	case KindTimeout:
		return "timeout"
	case KindZeroResults:
		return "zero_results"
	}
	return "unknown"
}

// Error：携带分类的网关内部错误
// 背景：传输层与服务商状态都折算为 Kind，向上只暴露分类与文案
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Kind.String() + ": " + e.Detail
	}
	return e.Kind.String()
}

// KindOf：从任意错误提取分类，非本包错误归为未知
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if ge, ok := err.(*Error); ok {
		return ge.Kind
	}
	return KindUnknown
}

// State：返回值标签
type State int

const (
	StateOk State = iota
	StateEmpty
	StateErr
)

// Result：带标签的三态返回值
// 约束：Value 仅在 StateOk 下有意义；Kind 仅在 StateErr 下非 KindNone
type Result[T any] struct {
	State State
	Value T
	Kind  Kind
}

func Ok[T any](v T) Result[T] { return Result[T]{State: StateOk, Value: v} }

func Empty[T any]() Result[T] { return Result[T]{State: StateEmpty} }

func Err[T any](k Kind) Result[T] { return Result[T]{State: StateErr, Kind: k} }

// IsOk：是否为命中态
func (r Result[T]) IsOk() bool { return r.State == StateOk }

// Message：出错态的用户文案，其余态返回空串
func (r Result[T]) Message() string {
	if r.State != StateErr {
		return ""
	}
	return r.Kind.Message()
}
