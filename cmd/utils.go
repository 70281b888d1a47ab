package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/zheng/cruiser/internal/display"
	"github.com/zheng/cruiser/internal/impact"
	"github.com/zheng/cruiser/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openDB() (*storage.DB, error) {
	if _, err := os.Stat(DbPath); err != nil {
		return nil, fmt.Errorf("数据库 %s 不存在，请先运行 cruise -T sqlite 或 watch", DbPath)
	}
	db, err := storage.Open(DbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	return db, nil
}

// resolveModule finds the module named by arg. When several modules match,
// selectN picks one directly; otherwise the user is asked.
func resolveModule(db *storage.DB, arg string, selectN int) (*storage.Module, error) {
	m, err := impact.NewAnalyzer(db).Resolve(arg)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("未找到模块: %s", arg)
	}
	if !errors.Is(err, impact.ErrAmbiguous) {
		return nil, err
	}

	modules, ferr := db.FindModules(arg)
	if ferr != nil || len(modules) < 2 {
		return nil, err
	}
	if selectN >= 1 && selectN <= len(modules) {
		return modules[selectN-1], nil
	}

	fmt.Println("找到多个匹配的模块，请选择:")
	for i, m := range modules {
		fmt.Printf("  [%d] %s\n", i+1, m.Source)
	}
	fmt.Print("\n请输入序号 [1-" + fmt.Sprint(len(modules)) + "]: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(modules) {
		return nil, fmt.Errorf("无效的选择")
	}
	return modules[choice-1], nil
}

// printTree prints a dependency tree to stdout
func printTree(tree []*storage.TreeNode) {
	maxWidth, maxDepth := 0, 0
	display.CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	fmt.Print(display.FormatTree(tree, "", maxWidth, maxDepth, 0))
}
