package pdftext

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Extract 读取 PDF 的全部内嵌文本（不做 OCR）。
// 返回的文本只用于号码提取与台账留痕，不保证保留版式。
//
// ledongthuc/pdf 在部分畸形文件上会 panic；这里统一转为 error，
// 单个文件的解析失败不允许中断批处理。
func Extract(path string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf 解析异常：%v", p)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PageCount 返回 PDF 页数，同时充当“文件是否是合法 PDF”的探测。
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
