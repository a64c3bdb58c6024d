package fakearango

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

// The fake understands a small subset of AQL:
//
//	FOR x IN collection|@@collection|@array|[...]|1..10
//	  FILTER x.a == 1 AND (x.b IN @values OR NOT x.c)
//	  SORT x.a DESC, x.b
//	  LIMIT 10, 5
//	  INSERT {...} INTO collection
//	  REMOVE x IN collection
//	  RETURN x.a
//
// A query without FOR evaluates its RETURN expression once.

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenBind
	tokenCollectionBind
	tokenPunct
)

type token struct {
	kind  tokenKind
	text  string
	value any
	pos   int
}

func (t token) is(keyword string) bool {
	return (t.kind == tokenIdent || t.kind == tokenPunct) && strings.EqualFold(t.text, keyword)
}

func errQueryParse(format string, args ...any) *apiError {
	return newError(http.StatusBadRequest, errors.ErrorQueryParse, "AQL: syntax error, "+format, args...)
}

var punctuation = []string{"..", "==", "!=", "<=", ">=", "&&", "||", "<", ">", "!", ".", ",", "(", ")", "[", "]", "{", "}", ":"}

func tokenize(query string) ([]token, error) {
	tokens := []token{}
	runes := []rune(query)

	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}

		case r == '"' || r == '\'':
			start := i
			i++
			var sb strings.Builder
			for ; i < len(runes) && runes[i] != r; i++ {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
				}
				sb.WriteRune(runes[i])
			}
			if i >= len(runes) {
				return nil, errQueryParse("unterminated string literal at position %d", start)
			}
			i++
			tokens = append(tokens, token{kind: tokenString, text: sb.String(), value: sb.String(), pos: start})

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) && expectsOperand(tokens)):
			start := i
			i++
			isFloat := false
			for i < len(runes) {
				if unicode.IsDigit(runes[i]) {
					i++
					continue
				}
				// a dot followed by another dot starts a range
				if runes[i] == '.' && !isFloat && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
					isFloat = true
					i++
					continue
				}
				break
			}
			text := string(runes[start:i])
			t := token{kind: tokenNumber, text: text, pos: start}
			if isFloat {
				f, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, errQueryParse("invalid number %s", text)
				}
				t.value = f
			} else {
				n, err := strconv.ParseInt(text, 10, 64)
				if err != nil {
					return nil, errQueryParse("invalid number %s", text)
				}
				t.value = n
			}
			tokens = append(tokens, t)

		case r == '@':
			start := i
			kind := tokenBind
			i++
			if i < len(runes) && runes[i] == '@' {
				kind = tokenCollectionBind
				i++
			}
			nameStart := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			if i == nameStart {
				return nil, errQueryParse("invalid bind parameter at position %d", start)
			}
			tokens = append(tokens, token{kind: kind, text: string(runes[nameStart:i]), pos: start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i]), pos: start})

		default:
			matched := false
			for _, p := range punctuation {
				if strings.HasPrefix(string(runes[i:min(i+len(p), len(runes))]), p) {
					tokens = append(tokens, token{kind: tokenPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, errQueryParse("unexpected character '%c' at position %d", r, i)
			}
		}
	}

	return append(tokens, token{kind: tokenEOF, pos: len(runes)}), nil
}

// expectsOperand reports whether a minus sign at this point is the sign of a number
func expectsOperand(tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}
	last := tokens[len(tokens)-1]
	if last.kind == tokenPunct {
		return !slices.Contains([]string{")", "]", "}"}, last.text)
	}
	return last.kind == tokenIdent && isKeyword(last.text)
}

var keywords = []string{"FOR", "IN", "FILTER", "SORT", "LIMIT", "RETURN", "INSERT", "INTO", "REMOVE", "AND", "OR", "NOT", "ASC", "DESC", "TRUE", "FALSE", "NULL", "DISTINCT"}

func isKeyword(s string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool { return strings.EqualFold(k, s) })
}

type exprKind int

const (
	exprLiteral exprKind = iota
	exprBind
	exprVariable
	exprObject
	exprArray
	exprRange
	exprBinary
	exprNot
)

type expression struct {
	kind  exprKind
	value any
	name  string
	path  []string
	op    string
	keys  []string
	args  []*expression
}

type sortKey struct {
	expr       *expression
	descending bool
}

type operationKind int

const (
	operationFilter operationKind = iota
	operationSort
	operationLimit
	operationInsert
	operationRemove
)

type operation struct {
	kind       operationKind
	expr       *expression
	sortKeys   []sortKey
	offset     *expression
	count      *expression
	collection string
	bind       bool
}

type aqlQuery struct {
	variable   string
	source     *expression
	collection string
	bind       bool

	operations []operation
	returns    *expression
	distinct   bool

	collections []string
	bindVars    []string
}

func (q *aqlQuery) hasWrites() bool {
	return slices.ContainsFunc(q.operations, func(o operation) bool {
		return o.kind == operationInsert || o.kind == operationRemove
	})
}

type parser struct {
	tokens []token
	pos    int
	query  *aqlQuery
}

func parseAQL(text string) (*aqlQuery, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newError(http.StatusBadRequest, errors.ErrorQueryEmpty, "query is empty")
	}

	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, query: &aqlQuery{}}
	if err := p.parse(); err != nil {
		return nil, err
	}

	return p.query, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.peek().is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		t := p.peek()
		return errQueryParse("unexpected '%s' near position %d, expecting %s", t.text, t.pos, text)
	}
	return nil
}

func (p *parser) addCollection(name string) {
	if !slices.Contains(p.query.collections, name) {
		p.query.collections = append(p.query.collections, name)
	}
}

func (p *parser) addBindVar(name string) {
	if !slices.Contains(p.query.bindVars, name) {
		p.query.bindVars = append(p.query.bindVars, name)
	}
}

// collectionRef parses a collection name or a collection bind parameter
func (p *parser) collectionRef() (string, bool, error) {
	t := p.next()
	switch {
	case t.kind == tokenCollectionBind:
		p.addBindVar("@" + t.text)
		return t.text, true, nil
	case t.kind == tokenIdent && !isKeyword(t.text):
		p.addCollection(t.text)
		return t.text, false, nil
	}
	return "", false, errQueryParse("expecting a collection near position %d", t.pos)
}

func (p *parser) parse() error {
	q := p.query

	if p.accept("FOR") {
		v := p.next()
		if v.kind != tokenIdent || isKeyword(v.text) {
			return errQueryParse("expecting a variable name near position %d", v.pos)
		}
		q.variable = v.text

		if err := p.expect("IN"); err != nil {
			return err
		}

		t := p.peek()
		if t.kind == tokenCollectionBind || (t.kind == tokenIdent && !isKeyword(t.text) && !p.tokens[p.pos+1].is(".")) {
			name, bind, err := p.collectionRef()
			if err != nil {
				return err
			}
			q.collection, q.bind = name, bind
		} else {
			source, err := p.expression()
			if err != nil {
				return err
			}
			if p.accept("..") {
				upper, err := p.expression()
				if err != nil {
					return err
				}
				source = &expression{kind: exprRange, args: []*expression{source, upper}}
			}
			q.source = source
		}
	}

	for {
		t := p.peek()
		switch {
		case t.is("FILTER"):
			p.next()
			cond, err := p.expression()
			if err != nil {
				return err
			}
			q.operations = append(q.operations, operation{kind: operationFilter, expr: cond})

		case t.is("SORT"):
			p.next()
			op := operation{kind: operationSort}
			for {
				e, err := p.expression()
				if err != nil {
					return err
				}
				key := sortKey{expr: e}
				if p.accept("DESC") {
					key.descending = true
				} else {
					p.accept("ASC")
				}
				op.sortKeys = append(op.sortKeys, key)
				if !p.accept(",") {
					break
				}
			}
			q.operations = append(q.operations, op)

		case t.is("LIMIT"):
			p.next()
			first, err := p.expression()
			if err != nil {
				return err
			}
			op := operation{kind: operationLimit, count: first}
			if p.accept(",") {
				second, err := p.expression()
				if err != nil {
					return err
				}
				op.offset, op.count = first, second
			}
			q.operations = append(q.operations, op)

		case t.is("INSERT"):
			p.next()
			e, err := p.expression()
			if err != nil {
				return err
			}
			if err := p.expect("INTO"); err != nil {
				return err
			}
			name, bind, err := p.collectionRef()
			if err != nil {
				return err
			}
			q.operations = append(q.operations, operation{kind: operationInsert, expr: e, collection: name, bind: bind})

		case t.is("REMOVE"):
			p.next()
			// the operand stops before IN, which names the collection here
			e, err := p.operand()
			if err != nil {
				return err
			}
			if err := p.expect("IN"); err != nil {
				return err
			}
			name, bind, err := p.collectionRef()
			if err != nil {
				return err
			}
			q.operations = append(q.operations, operation{kind: operationRemove, expr: e, collection: name, bind: bind})

		case t.is("RETURN"):
			p.next()
			q.distinct = p.accept("DISTINCT")
			e, err := p.expression()
			if err != nil {
				return err
			}
			q.returns = e
			if end := p.peek(); end.kind != tokenEOF {
				return errQueryParse("unexpected '%s' near position %d", end.text, end.pos)
			}
			return nil

		case t.kind == tokenEOF:
			if q.hasWrites() {
				return nil
			}
			return errQueryParse("unexpected end of query, expecting RETURN")

		default:
			return errQueryParse("unexpected '%s' near position %d", t.text, t.pos)
		}
	}
}

func (p *parser) expression() (*expression, error) {
	return p.or()
}

func (p *parser) or() (*expression, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept("OR") || p.accept("||") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &expression{kind: exprBinary, op: "OR", args: []*expression{left, right}}
	}
	return left, nil
}

func (p *parser) and() (*expression, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.accept("AND") || p.accept("&&") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = &expression{kind: exprBinary, op: "AND", args: []*expression{left, right}}
	}
	return left, nil
}

func (p *parser) not() (*expression, error) {
	if p.accept("NOT") || p.accept("!") {
		e, err := p.not()
		if err != nil {
			return nil, err
		}
		return &expression{kind: exprNot, args: []*expression{e}}, nil
	}
	return p.comparison()
}

var comparisonOperators = []string{"==", "!=", "<=", ">=", "<", ">"}

func (p *parser) comparison() (*expression, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	op := ""
	switch {
	case t.kind == tokenPunct && slices.Contains(comparisonOperators, t.text):
		op = t.text
		p.next()
	case t.is("IN"):
		op = "IN"
		p.next()
	case t.is("NOT") && p.tokens[p.pos+1].is("IN"):
		op = "NOT IN"
		p.pos += 2
	default:
		return left, nil
	}

	right, err := p.operand()
	if err != nil {
		return nil, err
	}

	return &expression{kind: exprBinary, op: op, args: []*expression{left, right}}, nil
}

func (p *parser) operand() (*expression, error) {
	t := p.next()

	switch t.kind {
	case tokenNumber, tokenString:
		return &expression{kind: exprLiteral, value: t.value}, nil

	case tokenBind:
		p.addBindVar(t.text)
		return p.attributes(&expression{kind: exprBind, name: t.text})

	case tokenIdent:
		switch strings.ToUpper(t.text) {
		case "TRUE":
			return &expression{kind: exprLiteral, value: true}, nil
		case "FALSE":
			return &expression{kind: exprLiteral, value: false}, nil
		case "NULL":
			return &expression{kind: exprLiteral, value: nil}, nil
		}
		if isKeyword(t.text) {
			return nil, errQueryParse("unexpected keyword '%s' near position %d", t.text, t.pos)
		}
		return p.attributes(&expression{kind: exprVariable, name: t.text})

	case tokenPunct:
		switch t.text {
		case "(":
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil

		case "[":
			e := &expression{kind: exprArray}
			for !p.accept("]") {
				if len(e.args) > 0 {
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
				item, err := p.expression()
				if err != nil {
					return nil, err
				}
				e.args = append(e.args, item)
			}
			return e, nil

		case "{":
			e := &expression{kind: exprObject}
			for !p.accept("}") {
				if len(e.keys) > 0 {
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
				k := p.next()
				if k.kind != tokenIdent && k.kind != tokenString {
					return nil, errQueryParse("expecting an attribute name near position %d", k.pos)
				}
				if err := p.expect(":"); err != nil {
					return nil, err
				}
				value, err := p.expression()
				if err != nil {
					return nil, err
				}
				e.keys = append(e.keys, k.text)
				e.args = append(e.args, value)
			}
			return e, nil
		}
	}

	if t.kind == tokenEOF {
		return nil, errQueryParse("unexpected end of query")
	}
	return nil, errQueryParse("unexpected '%s' near position %d", t.text, t.pos)
}

// attributes parses a chain of attribute accesses such as .address.city
func (p *parser) attributes(e *expression) (*expression, error) {
	for p.peek().is(".") {
		p.next()
		name := p.next()
		if name.kind != tokenIdent {
			return nil, errQueryParse("expecting an attribute name near position %d", name.pos)
		}
		e.path = append(e.path, name.text)
	}
	return e, nil
}

func errBindParameterMissing(name string) *apiError {
	return newError(http.StatusBadRequest, errors.ErrorQueryBindParameterMissing, "no value specified for declared bind parameter '%s'", name)
}

// checkBindVars verifies that every bind parameter used by q has a value and that no unused
// values were supplied
func (q *aqlQuery) checkBindVars(bindVars map[string]any) error {
	for _, name := range q.bindVars {
		if _, ok := bindVars[name]; !ok {
			return errBindParameterMissing(name)
		}
	}
	for name := range bindVars {
		if !slices.Contains(q.bindVars, name) {
			return newError(http.StatusBadRequest, errors.ErrorBadParameter, "bind parameter '%s' was not declared in the query", name)
		}
	}
	return nil
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	}
	if n, ok := asNumber(v); ok {
		return n != 0
	}
	return true
}

func (e *expression) eval(row map[string]any, bindVars map[string]any) (any, error) {
	switch e.kind {
	case exprLiteral:
		return e.value, nil

	case exprBind:
		v, ok := bindVars[e.name]
		if !ok {
			return nil, errBindParameterMissing(e.name)
		}
		return resolvePath(v, e.path), nil

	case exprVariable:
		v, ok := row[e.name]
		if !ok {
			return nil, errQueryParse("use of unknown variable '%s'", e.name)
		}
		return resolvePath(v, e.path), nil

	case exprArray:
		values := make([]any, 0, len(e.args))
		for _, arg := range e.args {
			v, err := arg.eval(row, bindVars)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil

	case exprObject:
		object := make(map[string]any, len(e.args))
		for i, arg := range e.args {
			v, err := arg.eval(row, bindVars)
			if err != nil {
				return nil, err
			}
			object[e.keys[i]] = v
		}
		return object, nil

	case exprRange:
		lower, err := e.args[0].eval(row, bindVars)
		if err != nil {
			return nil, err
		}
		upper, err := e.args[1].eval(row, bindVars)
		if err != nil {
			return nil, err
		}
		lo, ok1 := asNumber(lower)
		hi, ok2 := asNumber(upper)
		if !ok1 || !ok2 {
			return nil, badParameter("range bounds must be numbers")
		}
		values := []any{}
		for i := int64(lo); i <= int64(hi); i++ {
			values = append(values, i)
		}
		return values, nil

	case exprNot:
		v, err := e.args[0].eval(row, bindVars)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil

	case exprBinary:
		left, err := e.args[0].eval(row, bindVars)
		if err != nil {
			return nil, err
		}

		switch e.op {
		case "AND":
			if !truthy(left) {
				return left, nil
			}
			return e.args[1].eval(row, bindVars)
		case "OR":
			if truthy(left) {
				return left, nil
			}
			return e.args[1].eval(row, bindVars)
		}

		right, err := e.args[1].eval(row, bindVars)
		if err != nil {
			return nil, err
		}

		switch e.op {
		case "==":
			return compareValues(left, right) == 0, nil
		case "!=":
			return compareValues(left, right) != 0, nil
		case "<":
			return compareValues(left, right) < 0, nil
		case "<=":
			return compareValues(left, right) <= 0, nil
		case ">":
			return compareValues(left, right) > 0, nil
		case ">=":
			return compareValues(left, right) >= 0, nil
		case "IN", "NOT IN":
			found := false
			if values, ok := right.([]any); ok {
				found = slices.ContainsFunc(values, func(v any) bool { return compareValues(left, v) == 0 })
			}
			return found == (e.op == "IN"), nil
		}
	}

	return nil, errQueryParse("unsupported expression")
}

func resolvePath(v any, path []string) any {
	if len(path) == 0 {
		return v
	}
	resolved, ok := attribute(v, strings.Join(path, "."))
	if !ok {
		return nil
	}
	return resolved
}
