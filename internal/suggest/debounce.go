package suggest

import (
	"sync"
	"time"
)

// 文档注释：去抖器
// 背景：每个键击触发一次查询会直达计费接口，输入停顿满一个窗口才真正发起；
// 去抖责任收在服务内部而非约定给调用方，窗口可配置。
// 约束：连续调用重置计时器；Cancel 丢弃挂起任务。
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{duration: duration}
}

// do：窗口结束后执行 fn；期间再次调用则重新计时
func (d *debouncer) do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.duration <= 0 {
		d.timer = nil
		go fn()
		return
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// cancel：丢弃挂起任务
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
