package server

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// routeInfo is one mux registration and the s.<field>.<method> calls its
// handler makes.
type routeInfo struct {
	pattern string
	method  string
	handler string
	calls   map[string][]string
}

func (r routeInfo) calledAny(fields ...string) bool {
	for _, f := range fields {
		if len(r.calls[f]) > 0 {
			return true
		}
	}
	return false
}

func TestMutationRoutesUseServiceBoundary(t *testing.T) {
	mutations := 0
	for _, route := range loadRouteTable(t) {
		switch route.method {
		case "POST", "PATCH", "PUT", "DELETE":
		default:
			continue
		}
		mutations++
		if calls := route.calls["store"]; len(calls) > 0 {
			t.Fatalf("%s (%s) calls s.store directly: %v", route.handler, route.pattern, calls)
		}
		if !route.calledAny("tickets", "statuses", "projects") {
			t.Fatalf("%s (%s) does not go through a service", route.handler, route.pattern)
		}
	}
	if mutations == 0 {
		t.Fatal("no mutation routes discovered")
	}
}

func TestOnlyStatusRouteTransitions(t *testing.T) {
	const statusPattern = "PATCH /tickets/{ticketId}/status"

	found := false
	for _, route := range loadRouteTable(t) {
		if route.pattern == statusPattern {
			found = true
			if !containsString(route.calls["statuses"], "Transition") {
				t.Fatalf("%s must call s.statuses.Transition", route.handler)
			}
			continue
		}
		if calls := route.calls["statuses"]; len(calls) > 0 {
			t.Fatalf("%s (%s) uses the status service: %v", route.handler, route.pattern, calls)
		}
	}
	if !found {
		t.Fatalf("%s not registered", statusPattern)
	}
}

// loadRouteTable parses the package sources, reads the HandleFunc calls in
// routes.go and records which server fields each handler calls into.
func loadRouteTable(t *testing.T) []routeInfo {
	t.Helper()

	_, self, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	dir := filepath.Dir(self)

	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("glob sources: %v", err)
	}

	fset := token.NewFileSet()
	handlers := map[string]*ast.FuncDecl{}
	var routesFile *ast.File
	for _, path := range paths {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		if filepath.Base(path) == "routes.go" {
			routesFile = file
		}
		for _, decl := range file.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv != nil && strings.HasPrefix(fn.Name.Name, "handle") {
				handlers[fn.Name.Name] = fn
			}
		}
	}
	if routesFile == nil {
		t.Fatal("routes.go not found")
	}

	var routes []routeInfo
	ast.Inspect(routesFile, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) != 2 {
			return true
		}
		if sel, ok := call.Fun.(*ast.SelectorExpr); !ok || sel.Sel.Name != "HandleFunc" {
			return true
		}
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		pattern, err := strconv.Unquote(lit.Value)
		if err != nil {
			t.Fatalf("unquote %s: %v", lit.Value, err)
		}
		target, ok := call.Args[1].(*ast.SelectorExpr)
		if !ok {
			return true
		}

		fn, ok := handlers[target.Sel.Name]
		if !ok {
			t.Fatalf("handler %s for %q not found", target.Sel.Name, pattern)
		}
		method, _, _ := strings.Cut(pattern, " ")
		routes = append(routes, routeInfo{
			pattern: pattern,
			method:  method,
			handler: target.Sel.Name,
			calls:   serverFieldCalls(fn),
		})
		return true
	})
	if len(routes) == 0 {
		t.Fatal("no routes discovered")
	}
	return routes
}

// serverFieldCalls collects calls shaped like s.<field>.<method>(...).
func serverFieldCalls(fn *ast.FuncDecl) map[string][]string {
	calls := map[string][]string{}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		method, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		field, ok := method.X.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if recv, ok := field.X.(*ast.Ident); ok && recv.Name == "s" {
			if !containsString(calls[field.Sel.Name], method.Sel.Name) {
				calls[field.Sel.Name] = append(calls[field.Sel.Name], method.Sel.Name)
			}
		}
		return true
	})
	return calls
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
