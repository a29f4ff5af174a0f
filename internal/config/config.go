// Package config 负责发现并读取 nfpad.json，与 CLI 参数合并为最终配置。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/nfpad/internal/domain"
)

// CLIArgs 只包含 CLI 暴露的三项入口（pasta/planilha/apply），并保留"是否显式指定"的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Pasta string

	Planilha    string
	PlanilhaSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 nfpad.json 的解析结构。
type FileConfig struct {
	Pasta       string   `json:"pasta"`
	Planilha    string   `json:"planilha"`
	Apply       *bool    `json:"apply"`
	History     *bool    `json:"history"`
	ExcludeDirs []string `json:"exclude_dirs"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Pasta 是待整理的月度文件夹（其下含 NOTAS/ 与 BOLETOS/ 子目录）。
	Pasta string
	// Planilha 是订单台账工作簿的绝对路径。
	Planilha string

	Apply   bool
	History bool

	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeConfigNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case domain.ErrCodeConfigMissingPasta:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 pasta", e.Code, e.Path)
	case domain.ErrCodeConfigMissingPlanilha:
		return fmt.Sprintf("%s：planilha 未指定（--planilha 或配置文件 %q 的 planilha 字段）", e.Code, e.Path)
	case domain.ErrCodeConfigInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 pasta：尝试读取 <pasta>/nfpad.json（可选）
// 2) CLI 未提供 pasta：必须读取 <cwd>/nfpad.json（必选），且其中必须包含 pasta
//
// 覆盖优先级（固定）：
// - pasta：CLI pasta > config pasta
// - planilha：CLI > config（无默认值，缺失报错）
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.Pasta) != "" {
		// CLI 给了 pasta：配置文件可选，位置固定在 <pasta>/nfpad.json。
		absPasta := absCleanFrom(cwdAbs, cli.Pasta)
		cfgPath = filepath.Join(absPasta, "nfpad.json")

		fc, _, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
		}
		return merge(cwdAbs, absPasta, cli, fc, cfgPath)
	}

	// CLI 没给 pasta：必须读取 <cwd>/nfpad.json，且其中必须包含 pasta。
	cfgPath = filepath.Join(cwdAbs, "nfpad.json")
	var exists bool
	fc, exists, err = readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Pasta) == "" {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigMissingPasta, Path: cfgPath}
	}

	absPasta := absCleanFrom(cwdAbs, fc.Pasta)
	return merge(cwdAbs, absPasta, cli, fc, cfgPath)
}

func merge(cwdAbs, absPasta string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// planilha：CLI > config（必填）
	planilha := ""
	if cli.PlanilhaSet {
		planilha = strings.TrimSpace(cli.Planilha)
	} else if strings.TrimSpace(fc.Planilha) != "" {
		planilha = strings.TrimSpace(fc.Planilha)
	}
	if planilha == "" {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigMissingPlanilha, Path: cfgPath}
	}
	if err := validatePlanilha(planilha); err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}
	// 配置文件里的相对 planilha 相对于 pasta 解析；CLI 的相对于 cwd。
	if cli.PlanilhaSet {
		planilha = absCleanFrom(cwdAbs, planilha)
	} else {
		planilha = absCleanFrom(absPasta, planilha)
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	// history：仅 config 控制，默认开启。
	history := true
	if fc.History != nil {
		history = *fc.History
	}

	return EffectiveConfig{
		Pasta:       absPasta,
		Planilha:    planilha,
		Apply:       apply,
		History:     history,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
	}, nil
}

// validatePlanilha 约束工作簿扩展名为 excelize 支持的 OOXML 系列（不含旧式 .xls）。
func validatePlanilha(p string) error {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return nil
	case "":
		return fmt.Errorf("planilha 缺少扩展名：%q", p)
	default:
		return fmt.Errorf("planilha 只支持 .xlsx/.xlsm/.xltx/.xltm，实际是 %q", p)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
