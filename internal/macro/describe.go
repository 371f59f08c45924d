package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/syntax"
)

// FunctionDoc describes a public helper function without running it.
type FunctionDoc struct {
	Name      string
	Params    []string
	Docstring string
	Line      int
}

// Signature renders the function's call signature.
func (f *FunctionDoc) Signature() string {
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Params, ", "))
}

// Summary is the first line of the docstring.
func (f *FunctionDoc) Summary() string {
	first, _, _ := strings.Cut(f.Docstring, "\n")
	return strings.TrimSpace(first)
}

// ModuleDoc lists the public functions of one helper file.
type ModuleDoc struct {
	Namespace string
	Path      string
	Functions []*FunctionDoc
}

// Describe statically parses a helper file and lists its public
// functions in definition order.
func Describe(path string, content []byte) (*ModuleDoc, error) {
	f, err := fileOptions().Parse(path, content, 0)
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	doc := &ModuleDoc{
		Namespace: strings.TrimSuffix(filepath.Base(path), ".star"),
		Path:      path,
	}
	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		doc.Functions = append(doc.Functions, &FunctionDoc{
			Name:      def.Name.Name,
			Params:    params(def.Params),
			Docstring: docstring(def.Body),
			Line:      int(def.Name.NamePos.Line),
		})
	}
	return doc, nil
}

// DescribeDir describes every helper file in dir.
func DescribeDir(dir string) ([]*ModuleDoc, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan macros directory: %w", err)
	}
	var docs []*ModuleDoc
	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec // G304: path comes from a glob within the macros directory
		if err != nil {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("failed to read file: %v", err)}
		}
		doc, err := Describe(file, content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func params(exprs []syntax.Expr) []string {
	var out []string
	for _, e := range exprs {
		switch p := e.(type) {
		case *syntax.Ident:
			out = append(out, p.Name)
		case *syntax.BinaryExpr:
			if ident, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
				out = append(out, ident.Name+"="+exprString(p.Y))
			}
		case *syntax.UnaryExpr:
			prefix := "*"
			if p.Op == syntax.STARSTAR {
				prefix = "**"
			}
			if ident, ok := p.X.(*syntax.Ident); ok {
				out = append(out, prefix+ident.Name)
			} else {
				out = append(out, prefix)
			}
		}
	}
	return out
}

func docstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	stmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := stmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s)
}

func exprString(expr syntax.Expr) string {
	switch e := expr.(type) {
	case *syntax.Literal:
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.ListExpr:
		return "[]"
	case *syntax.DictExpr:
		return "{}"
	case *syntax.TupleExpr:
		return "()"
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return "-" + exprString(e.X)
		}
		return exprString(e.X)
	default:
		return "..."
	}
}
