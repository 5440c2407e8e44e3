// Package inject patches a user's Express entry file with the imports and
// middleware a module needs.
//
// Every module owns marker-delimited blocks:
//
//	// devark:resend-otp:imports:start
//	import otpRoutes from './routes/otpRoutes.js';
//	// devark:resend-otp:imports:end
//
// A rerun replaces the module's blocks in place, so patching is idempotent.
// The app-creation line is only searched for the first time a module's
// middleware block is placed; a "// devark:middleware" comment overrides that
// search.
package inject

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	ErrNotRegularFile    = errors.New("not a regular file")
	ErrUnterminatedBlock = errors.New("unterminated devark block")
)

const (
	markerPrefix = "// devark:"

	// MiddlewareAnchor marks where middleware blocks are placed.
	MiddlewareAnchor = "// devark:middleware"

	sectionImports    = "imports"
	sectionMiddleware = "middleware"
)

var (
	appLineRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+app\s*(?::\s*[\w.<>]+\s*)?=\s*express\s*\(\s*\)`)
	listenRe    = regexp.MustCompile(`\.listen\s*\(`)
	esmRe       = regexp.MustCompile(`^\s*(?:import[\s{'"*]|export\s)`)
	importRe    = regexp.MustCompile(`^\s*import[\s{'"*]`)
	requireRe   = regexp.MustCompile(`^\s*(?:(?:const|let|var)\s+[\w{}\s,:]+=\s*)?require\s*\(`)
	expressImRe = regexp.MustCompile(`(?:from\s+|require\s*\(\s*)['"]express['"]`)
	blockRe     = regexp.MustCompile(`^\s*// devark:([a-z0-9-]+):(imports|middleware):(start|end)\s*$`)
)

// Import is an import statement. An empty Name means a side-effect import.
// Path is used verbatim.
type Import struct {
	Name string
	Path string
}

// Spec is what a module needs in the entry file.
type Spec struct {
	Module       string
	Imports      []Import
	Middleware   []string
	EnsureListen bool
	TypeScript   bool
}

// node is either a user line or a devark block.
type node struct {
	line  string
	block *block
}

type block struct {
	module  string
	section string
	body    []string
	// placeholder marks where this module's previous block was removed.
	placeholder bool
}

// Patch returns content with spec applied. It never fails on unusual
// formatting; it fails only on a devark start marker without its end marker.
func Patch(content string, spec Spec) (string, error) {
	if spec.Module == "" {
		return "", fmt.Errorf("patch: module name required")
	}

	crlf := strings.Contains(content, "\r\n")
	if crlf {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}
	trailingNewline := content == "" || strings.HasSuffix(content, "\n")

	nodes, err := parse(content)
	if err != nil {
		return "", err
	}
	nodes = stripOwnBlocks(nodes, spec.Module)

	style := detectStyle(nodes, spec.TypeScript)
	semi := detectSemicolons(nodes)

	needExpress := !hasExpressImport(nodes)
	imports := make([]string, 0, len(spec.Imports)+1)
	if needExpress {
		imports = append(imports, style.expressImport(spec.TypeScript, semi))
	}
	for _, im := range spec.Imports {
		imports = append(imports, style.render(im, semi))
	}
	middleware := make([]string, 0, len(spec.Middleware))
	for _, mw := range spec.Middleware {
		middleware = append(middleware, withSemicolon(mw, semi))
	}

	// Lines the user already wrote move into our blocks.
	nodes = removeUserDuplicates(nodes, imports)
	nodes = removeUserDuplicates(nodes, middleware)

	// Lines another module's block already owns are not repeated.
	imports = withoutOwned(nodes, imports)
	middleware = withoutOwned(nodes, middleware)

	nodes = placeMiddleware(nodes, spec, middleware, semi, needExpress)
	nodes = placeImports(nodes, spec.Module, imports)

	if spec.EnsureListen && !hasListen(nodes) {
		nodes = append(nodes, node{line: ""})
		for _, l := range listenBlock(spec.TypeScript, semi) {
			nodes = append(nodes, node{line: l})
		}
	}

	out := strings.Join(flatten(nodes), "\n")
	if trailingNewline && out != "" {
		out += "\n"
	}
	if crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return out, nil
}

// PatchFile applies spec to the file at path and returns the old and new
// content. The file is only rewritten when the content changes.
func PatchFile(path string, spec Spec) (before, after string, err error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	before = string(data)
	after, err = Patch(before, spec)
	if err != nil {
		return "", "", fmt.Errorf("patch %s: %w", path, err)
	}
	if after == before {
		return before, after, nil
	}
	if err := os.WriteFile(path, []byte(after), info.Mode().Perm()); err != nil {
		return "", "", err
	}
	return before, after, nil
}

// IsCommonJS reports whether Patch would add require calls rather than
// import statements to content.
func IsCommonJS(content string, spec Spec) bool {
	nodes, err := parse(strings.ReplaceAll(content, "\r\n", "\n"))
	if err != nil {
		return false
	}
	nodes = stripOwnBlocks(nodes, spec.Module)
	return detectStyle(nodes, spec.TypeScript) == styleCommonJS
}

// Markers returns the start and end marker lines of a module section.
func Markers(module, section string) (start, end string) {
	return markerPrefix + module + ":" + section + ":start", markerPrefix + module + ":" + section + ":end"
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

func parse(content string) ([]node, error) {
	if content == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	var nodes []node
	for i := 0; i < len(lines); i++ {
		m := blockRe.FindStringSubmatch(lines[i])
		if m == nil || m[3] != "start" {
			nodes = append(nodes, node{line: lines[i]})
			continue
		}
		b := &block{module: m[1], section: m[2]}
		_, end := Markers(b.module, b.section)
		closed := false
		for i++; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == end {
				closed = true
				break
			}
			b.body = append(b.body, lines[i])
		}
		if !closed {
			return nil, fmt.Errorf("%w: %s:%s", ErrUnterminatedBlock, b.module, b.section)
		}
		nodes = append(nodes, node{block: b})
	}
	return nodes, nil
}

func stripOwnBlocks(nodes []node, module string) []node {
	for i := range nodes {
		if b := nodes[i].block; b != nil && b.module == module {
			nodes[i].block = &block{module: module, section: b.section, placeholder: true}
		}
	}
	return nodes
}

func flatten(nodes []node) []string {
	var out []string
	for _, n := range nodes {
		if n.block == nil {
			out = append(out, n.line)
			continue
		}
		if n.block.placeholder {
			continue
		}
		start, end := Markers(n.block.module, n.block.section)
		out = append(out, start)
		out = append(out, n.block.body...)
		out = append(out, end)
	}
	return out
}

// ---------------------------------------------------------------------------
// Style detection
// ---------------------------------------------------------------------------

type moduleStyle int

const (
	styleESM moduleStyle = iota
	styleCommonJS
)

func detectStyle(nodes []node, typescript bool) moduleStyle {
	if typescript {
		return styleESM
	}
	sawRequire := false
	for _, l := range allLines(nodes) {
		if esmRe.MatchString(l) {
			return styleESM
		}
		if requireRe.MatchString(l) {
			sawRequire = true
		}
	}
	if sawRequire {
		return styleCommonJS
	}
	return styleESM
}

func detectSemicolons(nodes []node) bool {
	statements := 0
	for _, n := range nodes {
		if n.block != nil {
			continue
		}
		l := strings.TrimSpace(n.line)
		if importRe.MatchString(l) || requireRe.MatchString(l) || appLineRe.MatchString(l) {
			if strings.HasSuffix(l, ";") {
				return true
			}
			statements++
		}
	}
	return statements == 0
}

func (s moduleStyle) render(im Import, semi bool) string {
	var l string
	switch {
	case s == styleCommonJS && im.Name == "":
		l = fmt.Sprintf("require('%s')", im.Path)
	case s == styleCommonJS:
		l = fmt.Sprintf("const %s = require('%s')", im.Name, im.Path)
	case im.Name == "":
		l = fmt.Sprintf("import '%s'", im.Path)
	default:
		l = fmt.Sprintf("import %s from '%s'", im.Name, im.Path)
	}
	return withSemicolon(l, semi)
}

func (s moduleStyle) expressImport(typescript, semi bool) string {
	switch {
	case s == styleCommonJS:
		return withSemicolon("const express = require('express')", semi)
	case typescript:
		return withSemicolon("import express, { Application } from 'express'", semi)
	default:
		return withSemicolon("import express from 'express'", semi)
	}
}

func withSemicolon(stmt string, semi bool) string {
	stmt = strings.TrimRight(stmt, " \t")
	if semi && !strings.HasSuffix(stmt, ";") {
		return stmt + ";"
	}
	if !semi {
		return strings.TrimSuffix(stmt, ";")
	}
	return stmt
}

// ---------------------------------------------------------------------------
// Deduplication
// ---------------------------------------------------------------------------

func normalize(l string) string {
	return strings.TrimSuffix(strings.TrimSpace(l), ";")
}

// removeUserDuplicates drops user-written spans that match a required entry.
// Multi-line entries match line by line.
func removeUserDuplicates(nodes []node, entries []string) []node {
	for _, entry := range entries {
		want := strings.Split(entry, "\n")
		for i := 0; i+len(want) <= len(nodes); {
			if matchUserSpan(nodes[i:i+len(want)], want) {
				nodes = append(nodes[:i], nodes[i+len(want):]...)
				continue
			}
			i++
		}
	}
	return nodes
}

func matchUserSpan(nodes []node, want []string) bool {
	for j, w := range want {
		if nodes[j].block != nil || normalize(nodes[j].line) != normalize(w) {
			return false
		}
	}
	return true
}

func withoutOwned(nodes []node, entries []string) []string {
	out := entries[:0:0]
	for _, e := range entries {
		if !ownedElsewhere(nodes, e) {
			out = append(out, e)
		}
	}
	return out
}

func ownedElsewhere(nodes []node, entry string) bool {
	want := strings.Split(entry, "\n")
	for _, n := range nodes {
		if n.block == nil || n.block.placeholder {
			continue
		}
		body := n.block.body
		for i := 0; i+len(want) <= len(body); i++ {
			match := true
			for j, w := range want {
				if normalize(body[i+j]) != normalize(w) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

func placeMiddleware(nodes []node, spec Spec, body []string, semi, expressImported bool) []node {
	if i := findPlaceholder(nodes, spec.Module, sectionMiddleware); i >= 0 {
		return fill(nodes, i, body)
	}
	if len(body) == 0 {
		return nodes
	}
	b := node{block: &block{module: spec.Module, section: sectionMiddleware, body: splitBody(body)}}

	if i := findUserLine(nodes, func(l string) bool { return strings.TrimSpace(l) == MiddlewareAnchor }); i >= 0 {
		return insertAt(nodes, afterBlocks(nodes, i+1, sectionMiddleware), b)
	}
	if i := findUserLine(nodes, appLineRe.MatchString); i >= 0 {
		return insertAt(nodes, afterBlocks(nodes, i+1, sectionMiddleware), b)
	}

	appLine := "const app = express()"
	if spec.TypeScript && expressImported {
		appLine = "const app: Application = express()"
	}
	if len(nodes) > 0 && strings.TrimSpace(nodes[len(nodes)-1].line) != "" {
		nodes = append(nodes, node{line: ""})
	}
	nodes = append(nodes, node{line: withSemicolon(appLine, semi)})
	return append(nodes, b)
}

func placeImports(nodes []node, module string, body []string) []node {
	if i := findPlaceholder(nodes, module, sectionImports); i >= 0 {
		return fill(nodes, i, body)
	}
	if len(body) == 0 {
		return nodes
	}
	b := node{block: &block{module: module, section: sectionImports, body: body}}

	if i := lastImport(nodes); i >= 0 {
		return insertAt(nodes, i+1, b)
	}

	// No imports yet: top of file, after a shebang or "use strict".
	i := 0
	for i < len(nodes) && nodes[i].block == nil {
		l := strings.TrimSpace(nodes[i].line)
		if strings.HasPrefix(l, "#!") || strings.Trim(l, `'";`) == "use strict" {
			i++
			continue
		}
		break
	}
	nodes = insertAt(nodes, i, b)
	if i+1 < len(nodes) && (nodes[i+1].block != nil || strings.TrimSpace(nodes[i+1].line) != "") {
		nodes = insertAt(nodes, i+1, node{line: ""})
	}
	return nodes
}

// lastImport returns the index of the last import statement or imports block
// above the app-creation line. Multi-line imports end at the first line that
// carries the module path.
func lastImport(nodes []node) int {
	last := -1
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.block != nil {
			if n.block.section == sectionImports && !n.block.placeholder {
				last = i
			}
			continue
		}
		if appLineRe.MatchString(n.line) {
			break
		}
		if requireRe.MatchString(n.line) {
			last = i
			continue
		}
		if !importRe.MatchString(n.line) {
			continue
		}
		for !strings.ContainsAny(nodes[i].line, `'"`) && i+1 < len(nodes) && nodes[i+1].block == nil {
			i++
		}
		last = i
	}
	return last
}

// afterBlocks skips over devark blocks of the given section starting at i so
// that modules keep their installation order.
func afterBlocks(nodes []node, i int, section string) int {
	for i < len(nodes) && nodes[i].block != nil && nodes[i].block.section == section {
		i++
	}
	return i
}

func findPlaceholder(nodes []node, module, section string) int {
	for i, n := range nodes {
		if n.block != nil && n.block.placeholder && n.block.module == module && n.block.section == section {
			return i
		}
	}
	return -1
}

func findUserLine(nodes []node, match func(string) bool) int {
	for i, n := range nodes {
		if n.block == nil && match(n.line) {
			return i
		}
	}
	return -1
}

func fill(nodes []node, i int, body []string) []node {
	if len(body) == 0 {
		return nodes
	}
	nodes[i].block = &block{module: nodes[i].block.module, section: nodes[i].block.section, body: splitBody(body)}
	return nodes
}

func splitBody(entries []string) []string {
	var out []string
	for _, e := range entries {
		out = append(out, strings.Split(e, "\n")...)
	}
	return out
}

func insertAt(nodes []node, i int, n node) []node {
	nodes = append(nodes, node{})
	copy(nodes[i+1:], nodes[i:])
	nodes[i] = n
	return nodes
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func allLines(nodes []node) []string {
	var out []string
	for _, n := range nodes {
		if n.block == nil {
			out = append(out, n.line)
		} else if !n.block.placeholder {
			out = append(out, n.block.body...)
		}
	}
	return out
}

func hasExpressImport(nodes []node) bool {
	for _, l := range allLines(nodes) {
		if expressImRe.MatchString(l) {
			return true
		}
	}
	return false
}

func hasListen(nodes []node) bool {
	for _, l := range allLines(nodes) {
		if listenRe.MatchString(l) {
			return true
		}
	}
	return false
}

func listenBlock(typescript, semi bool) []string {
	if typescript {
		return []string{
			withSemicolon("const PORT = process.env.PORT || 3000", semi),
			"app.listen(PORT, () => {",
			"  console.log(`Server running on http://localhost:${PORT}`)" + semicolon(semi),
			"})" + semicolon(semi),
		}
	}
	return []string{
		"app.listen(3000, () => {",
		"  console.log('Server running on http://localhost:3000')" + semicolon(semi),
		"})" + semicolon(semi),
	}
}

func semicolon(semi bool) string {
	if semi {
		return ";"
	}
	return ""
}
