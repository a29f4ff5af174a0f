package nf

import (
	"regexp"
	"strings"
)

// 提取规则按优先级排列，命中即停；顺序本身就是契约。
// 新增/调整发票布局时只改这张表，不改控制流。
//
// 第 1 条对应的布局全文大写，保持区分大小写以避免误伤正文；其余不区分。
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`NOTA FISCAL INDICADA AO LADO\s+([\d.]+)`),
	regexp.MustCompile(`(?i)NF-e\s*N[ºo.]*\s*[:.\-]*\s*([0-9]{9}|[0-9]{3}\.[0-9]{3}\.[0-9]{3})`),
	regexp.MustCompile(`(?i)SÉRIE[:\s\r\n]+(\d{3,9}(?:[.\s]?\d{1,3}){0,2})`),
	regexp.MustCompile(`(?i)N[ºro.]?r?\s*[:.\s]*([0-9]{5,9}|[0-9]{1,3}\.[0-9]{3}\.[0-9]{3}|[0-9]{2,3}\.[0-9]{3})`),
	regexp.MustCompile(`(?i)NOTA\s+FISCAL\s+ELETRÔNICA[\s\S]{0,50}?([0-9]{3}\.?[0-9]{3}\.?[0-9]{3})`),
}

// Extract 在 PDF 全文中按优先级查找发票号。
// 返回首个命中的原始捕获（可能仍带点/空格分组），规范化交给 Normalize。
func Extract(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

var nonDigitRE = regexp.MustCompile(`[^0-9]`)

// Normalize 去掉捕获里的分隔符并左补零到 9 位（台账 DANFE 列的固定宽度）。
// 超过 9 位的数字串原样保留，不截断。
func Normalize(raw string) string {
	digits := nonDigitRE.ReplaceAllString(raw, "")
	for len(digits) < 9 {
		digits = "0" + digits
	}
	return digits
}
