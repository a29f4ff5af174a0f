package run

import (
	"time"

	"github.com/John-Robertt/nfpad/internal/config"
	"github.com/John-Robertt/nfpad/internal/domain"
)

// Observer 用于把"运行进度/阶段/条目结果"从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 执行是单 goroutine 顺序进行的（台账是单一写者），事件按发生顺序到达。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnLog 输出一条带时间戳的运行日志（台账告警、PDF 页数等）。
	OnLog(msg string)
	// OnFileDone 在某个 PDF 处理完成时调用（用于每条结果的一行输出）。
	OnFileDone(idx, total int, res domain.FileResult, dur time.Duration)
	// OnDone 在运行结束时恰好调用一次；success=false 表示出现了致命错误（无法打开/保存台账等）。
	OnDone(success bool, msg string)
}
