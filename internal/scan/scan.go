package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/nfpad/internal/domain"
)

// ScanPDFs 扫描 root 子树中 NOTAS/BOLETOS 目录下的 PDF。
//
// 规则（硬约束）：
// - 只收录“直接父目录”名为 NOTAS 或 BOLETOS（不区分大小写）的 .pdf 文件（扩展名同样不区分大小写）
// - 永久排除：<root>/cache/（report/历史库所在地）
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 扫描阶段只看路径，不读文件内容。
func ScanPDFs(root string, excludeDirs []string) ([]domain.PDFFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]domain.PDFFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.ToLower(filepath.Ext(name)) != ".pdf" {
			return nil
		}

		kind, ok := kindFromParent(filepath.Base(filepath.Dir(path)))
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.PDFFile{
			AbsPath: path,
			RelPath: rel,
			Name:    name,
			Kind:    kind,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func kindFromParent(dir string) (domain.Kind, bool) {
	switch strings.ToUpper(dir) {
	case "NOTAS":
		return domain.KindInvoice, true
	case "BOLETOS":
		return domain.KindSlip, true
	default:
		return "", false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(filepath.Join(root, "cache")))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
