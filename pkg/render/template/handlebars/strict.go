package handlebars

import (
	"fmt"
	"reflect"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/aymerick/raymond/ast"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// strictChecker walks a template and verifies every path resolves against
// the model. `each`, `with` and section blocks are checked against the scope
// they push: every element of a collection, or the block's target. Bodies of
// custom block helpers and blocks with block params are skipped since their
// context is not known ahead of execution.
type strictChecker struct {
	name    string
	scopes  []reflect.Value
	helpers map[string]struct{}
}

func newStrictChecker(name string, model any, helpers map[string]struct{}) *strictChecker {
	return &strictChecker{
		name:    name,
		scopes:  []reflect.Value{reflect.ValueOf(model)},
		helpers: helpers,
	}
}

func (c *strictChecker) scope(depth int) (reflect.Value, bool) {
	idx := len(c.scopes) - 1 - depth
	if idx < 0 {
		return reflect.Value{}, false
	}
	return c.scopes[idx], true
}

func (c *strictChecker) within(scope reflect.Value, p *ast.Program) error {
	c.scopes = append(c.scopes, scope)
	defer func() { c.scopes = c.scopes[:len(c.scopes)-1] }()
	return c.program(p)
}

func (c *strictChecker) program(p *ast.Program) error {
	if p == nil {
		return nil
	}
	for _, node := range p.Body {
		switch n := node.(type) {
		case *ast.MustacheStatement:
			if err := c.expression(n.Expression); err != nil {
				return err
			}
		case *ast.BlockStatement:
			if err := c.block(n); err != nil {
				return err
			}
		case *ast.PartialStatement:
			for _, param := range n.Params {
				if err := c.param(param); err != nil {
					return err
				}
			}
			if err := c.hash(n.Hash); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *strictChecker) block(b *ast.BlockStatement) error {
	if err := c.expression(b.Expression); err != nil {
		return err
	}
	if err := c.body(b); err != nil {
		return err
	}
	return c.program(b.Inverse)
}

func (c *strictChecker) body(b *ast.BlockStatement) error {
	if b.Expression == nil || b.Program == nil || len(b.Program.BlockParams) > 0 {
		return nil
	}

	switch name := helperName(b.Expression); name {
	case "if", "unless":
		return c.program(b.Program)
	case "each":
		target, ok := c.firstParam(b.Expression)
		if !ok {
			return nil
		}
		return c.eachElement(target, b.Program)
	case "with":
		target, ok := c.firstParam(b.Expression)
		if !ok || !truthy(target) {
			return nil
		}
		return c.within(target, b.Program)
	default:
		path, isPath := b.Expression.Path.(*ast.PathExpression)
		if !isPath || c.isHelper(path) || len(b.Expression.Params) > 0 || b.Expression.Hash != nil {
			return nil
		}
		target, ok := c.value(path)
		if !ok {
			return nil
		}
		return c.section(target, b.Program)
	}
}

// section mirrors how raymond renders a block named after a model member:
// when truthy, collections iterate and anything else becomes the context.
func (c *strictChecker) section(target reflect.Value, p *ast.Program) error {
	v := unwrap(target)
	if !truthy(v) || v.Kind() == reflect.Func {
		return nil
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return c.eachElement(v, p)
	}
	return c.within(v, p)
}

// eachElement checks p once per element, with the element as scope. Empty
// collections render the else branch only, so the body is not checked.
func (c *strictChecker) eachElement(target reflect.Value, p *ast.Program) error {
	v := unwrap(target)
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := c.within(v.Index(i), p); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := c.within(iter.Value(), p); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			if err := c.within(v.Field(i), p); err != nil {
				return err
			}
		}
	}
	return nil
}

// firstParam resolves the first path argument of a block helper.
func (c *strictChecker) firstParam(expr *ast.Expression) (reflect.Value, bool) {
	if expr == nil || len(expr.Params) == 0 {
		return reflect.Value{}, false
	}
	path, ok := expr.Params[0].(*ast.PathExpression)
	if !ok {
		return reflect.Value{}, false
	}
	return c.value(path)
}

// value resolves p in its scope. ok is false when the value cannot be known
// statically; missing members were already reported by expression.
func (c *strictChecker) value(p *ast.PathExpression) (reflect.Value, bool) {
	if p.Data {
		return reflect.Value{}, false
	}
	scope, ok := c.scope(p.Depth)
	if !ok {
		return reflect.Value{}, false
	}
	v, found, known := lookup(scope, p.Parts)
	if !found || !known || !v.IsValid() {
		return reflect.Value{}, false
	}
	return v, true
}

func (c *strictChecker) expression(expr *ast.Expression) error {
	if expr == nil {
		return nil
	}

	path, isPath := expr.Path.(*ast.PathExpression)
	if isPath && !c.isHelper(path) && len(expr.Params) == 0 && expr.Hash == nil {
		return c.path(path)
	}

	for _, param := range expr.Params {
		if err := c.param(param); err != nil {
			return err
		}
	}
	return c.hash(expr.Hash)
}

func (c *strictChecker) hash(h *ast.Hash) error {
	if h == nil {
		return nil
	}
	for _, pair := range h.Pairs {
		if pair == nil {
			continue
		}
		if err := c.param(pair.Val); err != nil {
			return err
		}
	}
	return nil
}

func (c *strictChecker) param(node ast.Node) error {
	switch n := node.(type) {
	case *ast.PathExpression:
		return c.path(n)
	case *ast.SubExpression:
		return c.expression(n.Expression)
	}
	return nil
}

func (c *strictChecker) isHelper(path *ast.PathExpression) bool {
	if len(path.Parts) != 1 || path.Depth > 0 || path.Scoped {
		return false
	}
	_, ok := c.helpers[path.Parts[0]]
	return ok
}

func (c *strictChecker) path(p *ast.PathExpression) error {
	if p.Data || len(p.Parts) == 0 {
		return nil
	}
	scope, ok := c.scope(p.Depth)
	if !ok {
		return nil
	}
	if resolves(scope, p.Parts) {
		return nil
	}
	return &template.ExecutionError{
		Engine:  Name,
		Name:    c.name,
		Message: fmt.Sprintf("%q does not resolve against the model (line %d)", p.Original, p.Location().Line),
		Err:     template.ErrMissingMember,
	}
}

func helperName(expr *ast.Expression) string {
	if expr == nil {
		return ""
	}
	path, ok := expr.Path.(*ast.PathExpression)
	if !ok || len(path.Parts) != 1 {
		return ""
	}
	return path.Parts[0]
}

// resolves mirrors raymond's lookup rules: methods, exported struct fields
// (by name or `handlebars` tag), string-keyed map entries and slice indexes.
// A member that exists but holds nil ends the walk successfully.
func resolves(root reflect.Value, parts []string) bool {
	_, found, _ := lookup(root, parts)
	return found
}

// lookup walks parts from root. found is false when a member is missing.
// known is false when the walk stopped early at a nil member or at a value
// whose members cannot be enumerated; the returned value is then invalid.
func lookup(root reflect.Value, parts []string) (reflect.Value, bool, bool) {
	current := root
	if !indirect(current).IsValid() {
		return reflect.Value{}, false, true
	}

	for _, part := range parts {
		next, found, known := member(current, part)
		if !known {
			return reflect.Value{}, true, false
		}
		if !found {
			return reflect.Value{}, false, true
		}
		if !indirect(next).IsValid() {
			return reflect.Value{}, true, false
		}
		current = next
	}
	return current, true, true
}

func member(v reflect.Value, name string) (reflect.Value, bool, bool) {
	if m := method(v, name); m.IsValid() {
		return m, true, true
	}

	target := indirect(v)
	if !target.IsValid() {
		return reflect.Value{}, false, true
	}

	switch target.Kind() {
	case reflect.Struct:
		if field, ok := structField(target, name); ok {
			return field, true, true
		}
		return reflect.Value{}, false, true
	case reflect.Map:
		keyType := target.Type().Key()
		if keyType.Kind() != reflect.String {
			return reflect.Value{}, false, false
		}
		value := target.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if !value.IsValid() {
			return reflect.Value{}, false, true
		}
		return value, true, true
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(name)
		if err != nil {
			return reflect.Value{}, false, false
		}
		if index < 0 || index >= target.Len() {
			return reflect.Value{}, false, true
		}
		return target.Index(index), true, true
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return reflect.Value{}, false, true
	}
	return reflect.Value{}, false, false
}

// truthy follows raymond: false, zero numbers, empty strings, empty
// collections and nil pointers are falsy. Structs are always truthy.
func truthy(v reflect.Value) bool {
	v = unwrap(v)
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return v.Complex() != 0
	case reflect.Pointer, reflect.Chan, reflect.Func:
		return !v.IsNil()
	}
	return true
}

// unwrap strips interface layers only; raymond hands pointers to helpers
// as they are.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func method(v reflect.Value, name string) reflect.Value {
	for v.IsValid() {
		for _, candidate := range nameVariants(name) {
			if m := v.MethodByName(candidate); m.IsValid() {
				return m
			}
		}
		if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
			break
		}
		if v.IsNil() {
			break
		}
		v = v.Elem()
	}
	return reflect.Value{}
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for _, candidate := range nameVariants(name) {
		if field, ok := t.FieldByName(candidate); ok && field.IsExported() {
			return v.FieldByIndex(field.Index), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.IsExported() && field.Tag.Get("handlebars") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func nameVariants(name string) []string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return []string{name}
	}
	return []string{name, string(unicode.ToUpper(r)) + name[size:]}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
