// Package validate runs static pre-flight checks over a rewritten client
// artifact. Both checks are advisory: they return a finding string or
// nothing, never an error, and the pipeline never blocks shipment on them —
// the caller decides severity.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dop251/goja/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

var (
	reExportDefault = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
	reExportDecl    = regexp.MustCompile(`(?m)^([ \t]*)export\s+(const|let|var|function|class|async)\b`)
	reExportList    = regexp.MustCompile(`(?m)^[ \t]*export\s*\{[^}]*\}\s*;?[ \t]*$`)
	reNumberedIdent = regexp.MustCompile(`^([A-Za-z_$][A-Za-z_$0-9]*?)([0-9]+)$`)
)

// Validator checks one client artifact at a time. Not safe for concurrent
// use; each build constructs its own.
type Validator struct {
	js *sitter.Parser
}

// New returns a validator with a JavaScript grammar loaded.
func New() *Validator {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &Validator{js: p}
}

// Check runs both checks and returns the non-empty findings.
func (v *Validator) Check(code string) []string {
	var findings []string
	if f := v.CheckSyntax(code); f != "" {
		findings = append(findings, f)
	}
	if f := v.CheckAliases(code); f != "" {
		findings = append(findings, f)
	}
	return findings
}

// CheckSyntax rewrites export syntax into assignment-like forms a generic
// statement parser accepts, then attempts a parse. Returns the parser's
// message on failure, "" when clean.
func (v *Validator) CheckSyntax(code string) string {
	code = reExportDefault.ReplaceAllString(code, "${1}exports.default = ")
	code = reExportDecl.ReplaceAllString(code, "${1}${2}")
	code = reExportList.ReplaceAllString(code, "")

	if _, err := parser.ParseFile(nil, "client-artifact.js", code, 0); err != nil {
		return fmt.Sprintf("syntax: %v", err)
	}
	return ""
}

// CheckAliases collects every identifier the artifact itself declares, then
// looks for references shaped like declared-base-name plus trailing digits
// that are not themselves declared. Such a reference means the collision
// resolver missed a numbered duplicate; it would throw a reference error the
// moment the artifact actually loads. All offenders are reported in one
// finding.
func (v *Validator) CheckAliases(code string) string {
	content := []byte(code)
	tree, err := v.js.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return fmt.Sprintf("aliases: parse failed: %v", err)
	}
	defer tree.Close()

	declared := make(map[string]bool)
	referenced := make(map[string]bool)
	collect(tree.RootNode(), content, declared, referenced)

	var dangling []string
	for name := range referenced {
		m := reNumberedIdent.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if declared[m[1]] && !declared[name] {
			dangling = append(dangling, name)
		}
	}
	if len(dangling) == 0 {
		return ""
	}
	sort.Strings(dangling)
	return fmt.Sprintf("aliases: undeclared numbered references: %s", strings.Join(dangling, ", "))
}

// collect walks the AST recording declared and referenced identifiers.
// Declarations counted: variable declarators (including destructuring
// patterns), function/class declarations, and assignment-style targets.
func collect(node *sitter.Node, content []byte, declared, referenced map[string]bool) {
	text := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}

	switch node.Type() {
	case "variable_declarator":
		if name := node.ChildByFieldName("name"); name != nil {
			collectPatternNames(name, content, declared)
		}
	case "function_declaration", "generator_function_declaration", "class_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			declared[text(name)] = true
		}
	case "assignment_expression":
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			declared[text(left)] = true
		}
	case "identifier":
		referenced[text(node)] = true
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collect(node.NamedChild(i), content, declared, referenced)
	}
}

// collectPatternNames records every binding name inside a declarator name
// node, which may be a plain identifier or a destructuring pattern.
func collectPatternNames(node *sitter.Node, content []byte, declared map[string]bool) {
	switch node.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		declared[string(content[node.StartByte():node.EndByte()])] = true
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectPatternNames(node.NamedChild(i), content, declared)
	}
}
