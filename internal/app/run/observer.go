package run

import (
	"time"

	"github.com/John-Robertt/RidiMeta/internal/config"
	"github.com/John-Robertt/RidiMeta/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的记录流）。
// - Observer 的实现必须并发安全：OnItemDone 可能来自多个 goroutine。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用；total 为输入 URL 数。
	OnStart(eff config.EffectiveConfig, total int)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个 URL 处理完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
