// Команда linter запускает анализатор exitcheck, который запрещает аварийное
// завершение процесса вне точек, отвечающих за жизненный цикл.
//
// Разрешено:
//
//	log.Fatal*, os.Exit  в функции main пакета main
//	os.Exit              в пакете supervisor (в том числе как значение)
//
// Тестовые файлы не проверяются.
package main

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

var Analyzer = &analysis.Analyzer{
	Name: "exitcheck",
	Doc:  "проверяет использование panic, os.Exit и log.Fatal вне main пакета main",
	Run:  run,
}

// exitPackages перечисляет пакеты, которым разрешено завершать процесс через os.Exit.
var exitPackages = map[string]bool{
	"supervisor": true,
}

func main() {
	singlechecker.Main(Analyzer)
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		if strings.HasSuffix(pass.Fset.File(file.Pos()).Name(), "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.CallExpr:
				if ident, ok := node.Fun.(*ast.Ident); ok && ident.Name == "panic" {
					pass.Reportf(node.Pos(), "использование встроенной функции panic")
				}
			case *ast.SelectorExpr:
				checkSelector(pass, file, node)
			}
			return true
		})
	}

	return nil, nil
}

// checkSelector ловит и вызовы, и передачу os.Exit/log.Fatal как значения.
func checkSelector(pass *analysis.Pass, file *ast.File, sel *ast.SelectorExpr) {
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}

	pkgName := x.Name
	funcName := sel.Sel.Name

	isExit := pkgName == "os" && funcName == "Exit"
	if !isExit && !(pkgName == "log" && isFatalFunc(funcName)) {
		return
	}

	if isInMainFunc(pass, file, sel) {
		return
	}
	if isExit && exitPackages[pass.Pkg.Name()] {
		return
	}

	pass.Reportf(sel.Pos(), "вызов %s.%s вне функции main пакета main", pkgName, funcName)
}

func isFatalFunc(name string) bool {
	return name == "Fatal" || name == "Fatalf" || name == "Fatalln"
}

// isInMainFunc проверяет, находится ли узел внутри функции main пакета main
func isInMainFunc(pass *analysis.Pass, file *ast.File, n ast.Node) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}

	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}

		if funcDecl.Name.Name == "main" && funcDecl.Recv == nil &&
			funcDecl.Pos() <= n.Pos() && n.End() <= funcDecl.End() {
			return true
		}
	}

	return false
}
