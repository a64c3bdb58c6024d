package fakearango

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

const defaultBatchSize = 1000

type cursorRequest struct {
	Query     string         `json:"query"`
	BindVars  map[string]any `json:"bindVars"`
	Count     bool           `json:"count"`
	BatchSize int            `json:"batchSize"`
	TTL       int            `json:"ttl"`
	Options   struct {
		FullCount  bool `json:"fullCount"`
		AllowRetry bool `json:"allowRetry"`
		Stream     bool `json:"stream"`
	} `json:"options"`
}

type cursorResponse struct {
	Error       bool                 `json:"error"`
	Code        int                  `json:"code"`
	ID          string               `json:"id,omitempty"`
	HasMore     bool                 `json:"hasMore"`
	Count       *int64               `json:"count,omitempty"`
	Cached      bool                 `json:"cached"`
	NextBatchID string               `json:"nextBatchId,omitempty"`
	Result      []any                `json:"result"`
	Extra       arangodb.CursorExtra `json:"extra"`
}

type queryResult struct {
	results   []any
	stats     arangodb.CursorStats
	fullCount int64
}

// execute runs q against db. Callers hold s.mu.
func (s *Server) execute(db *database, q *aqlQuery, bindVars map[string]any) (*queryResult, error) {
	started := time.Now()
	result := &queryResult{}

	resolveCollection := func(name string, bind bool) (*collection, error) {
		if bind {
			v, ok := bindVars["@"+name].(string)
			if !ok {
				return nil, newError(http.StatusBadRequest, errors.ErrorQueryBindParameterMissing, "collection bind parameter '@%s' must be a string", name)
			}
			name = v
		}
		return db.collection(name)
	}

	rows := []map[string]any{}

	switch {
	case q.variable == "":
		rows = append(rows, map[string]any{})

	case q.source == nil:
		c, err := resolveCollection(q.collection, q.bind)
		if err != nil {
			return nil, err
		}
		for _, doc := range c.all() {
			rows = append(rows, map[string]any{q.variable: doc})
		}
		result.stats.ScannedFull = int64(len(rows))

	default:
		v, err := q.source.eval(map[string]any{}, bindVars)
		if err != nil {
			return nil, err
		}
		values, ok := v.([]any)
		if !ok {
			return nil, badParameter("FOR loop expects an array")
		}
		for _, value := range values {
			rows = append(rows, map[string]any{q.variable: value})
		}
	}

	for i, op := range q.operations {
		switch op.kind {
		case operationFilter:
			kept := rows[:0:0]
			for _, row := range rows {
				v, err := op.expr.eval(row, bindVars)
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					kept = append(kept, row)
				}
			}
			result.stats.Filtered += int64(len(rows) - len(kept))
			rows = kept

		case operationSort:
			type keyed struct {
				row  map[string]any
				keys []any
			}
			items := make([]keyed, 0, len(rows))
			for _, row := range rows {
				k := keyed{row: row}
				for _, key := range op.sortKeys {
					v, err := key.expr.eval(row, bindVars)
					if err != nil {
						return nil, err
					}
					k.keys = append(k.keys, v)
				}
				items = append(items, k)
			}
			slices.SortStableFunc(items, func(a, b keyed) int {
				for j, key := range op.sortKeys {
					c := compareValues(a.keys[j], b.keys[j])
					if key.descending {
						c = -c
					}
					if c != 0 {
						return c
					}
				}
				return 0
			})
			rows = rows[:0:0]
			for _, item := range items {
				rows = append(rows, item.row)
			}

		case operationLimit:
			offset, count := int64(0), int64(0)
			if op.offset != nil {
				v, err := op.offset.eval(map[string]any{}, bindVars)
				if err != nil {
					return nil, err
				}
				n, ok := asNumber(v)
				if !ok || n < 0 {
					return nil, badParameter("LIMIT offset must be a non negative number")
				}
				offset = int64(n)
			}
			v, err := op.count.eval(map[string]any{}, bindVars)
			if err != nil {
				return nil, err
			}
			n, ok := asNumber(v)
			if !ok || n < 0 {
				return nil, badParameter("LIMIT count must be a non negative number")
			}
			count = int64(n)

			if isLastLimit(q.operations, i) {
				result.fullCount = int64(len(rows))
			}

			lo := min(offset, int64(len(rows)))
			hi := min(lo+count, int64(len(rows)))
			rows = rows[lo:hi]

		case operationInsert:
			c, err := resolveCollection(op.collection, op.bind)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				v, err := op.expr.eval(row, bindVars)
				if err != nil {
					return nil, err
				}
				doc, ok := asObject(v)
				if !ok {
					return nil, newError(http.StatusBadRequest, errors.ErrorArangoDocumentTypeInvalid, "invalid document type")
				}
				written, _, err := s.insert(c, doc, writeOptions{returnNew: true, keepNull: true, mergeObjects: true, ignoreRevs: true})
				if err != nil {
					return nil, err
				}
				row["NEW"] = written["new"]
				result.stats.WritesExecuted++
			}

		case operationRemove:
			c, err := resolveCollection(op.collection, op.bind)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				v, err := op.expr.eval(row, bindVars)
				if err != nil {
					return nil, err
				}
				key, _, err := selectorKey(c, v)
				if err != nil {
					return nil, err
				}
				removed, err := s.remove(c, key, nil, writeOptions{returnOld: true, ignoreRevs: true})
				if err != nil {
					return nil, err
				}
				row["OLD"] = removed["old"]
				result.stats.WritesExecuted++
			}
		}
	}

	if !slices.ContainsFunc(q.operations, func(o operation) bool { return o.kind == operationLimit }) {
		result.fullCount = int64(len(rows))
	}

	result.results = []any{}
	if q.returns != nil {
		for _, row := range rows {
			v, err := q.returns.eval(row, bindVars)
			if err != nil {
				return nil, err
			}
			if q.distinct && slices.ContainsFunc(result.results, func(r any) bool { return compareValues(r, v) == 0 }) {
				continue
			}
			result.results = append(result.results, v)
		}
	}

	result.stats.ExecutionTime = time.Since(started).Seconds()

	return result, nil
}

func isLastLimit(operations []operation, i int) bool {
	for _, op := range operations[i+1:] {
		if op.kind == operationLimit {
			return false
		}
	}
	return true
}

func (cur *cursor) batch() ([]any, bool) {
	n := min(cur.batchSize, len(cur.results))
	batch := cur.results[:n]
	cur.results = cur.results[n:]
	cur.batchID++
	cur.lastBatch = batch
	cur.lastHasMore = len(cur.results) > 0
	return batch, cur.lastHasMore
}

func (cur *cursor) response(status int, batch []any, hasMore bool) cursorResponse {
	resp := cursorResponse{
		Code:    status,
		HasMore: hasMore,
		Result:  batch,
		Extra:   arangodb.CursorExtra{Stats: cur.stats},
	}
	if hasMore || cur.allowRetry {
		resp.ID = cur.id
	}
	if cur.allowRetry && hasMore {
		resp.NextBatchID = strconv.Itoa(cur.batchID + 1)
	}
	return resp
}

func (s *Server) createCursor(w http.ResponseWriter, r *http.Request) {
	request := cursorRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	q, err := parseAQL(request.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := q.checkBindVars(request.BindVars); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransaction(r); err != nil {
		writeError(w, r, err)
		return
	}

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.execute(db, q, request.BindVars)
	if err != nil {
		writeError(w, r, err)
		return
	}

	batchSize := request.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	stats := result.stats
	if request.Options.FullCount {
		stats.FullCount = result.fullCount
	}

	cur := &cursor{
		id:         s.nextID(),
		results:    result.results,
		batchSize:  batchSize,
		count:      request.Count,
		allowRetry: request.Options.AllowRetry,
		stats:      stats,
	}
	total := int64(len(result.results))

	batch, hasMore := cur.batch()
	if hasMore || cur.allowRetry {
		db.cursors[cur.id] = cur
	}

	resp := cur.response(http.StatusCreated, batch, hasMore)
	if cur.count {
		resp.Count = &total
	}

	write(w, r, http.StatusCreated, resp)
}

func (s *Server) nextBatch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := param(r, "id")
	cur, ok := db.cursors[id]
	if !ok {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorCursorNotFound, "cursor not found"))
		return
	}

	if batchID := param(r, "batch"); batchID != "" {
		if !cur.allowRetry {
			writeError(w, r, badParameter("cursor was not created with allowRetry"))
			return
		}
		switch batchID {
		case strconv.Itoa(cur.batchID):
			write(w, r, http.StatusOK, cur.response(http.StatusOK, cur.lastBatch, cur.lastHasMore))
			return
		case strconv.Itoa(cur.batchID + 1):
		default:
			writeError(w, r, badParameter("batch %s is not available", batchID))
			return
		}
	}

	if !cur.lastHasMore {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorCursorNotFound, "cursor is exhausted"))
		return
	}

	batch, hasMore := cur.batch()
	if !hasMore && !cur.allowRetry {
		delete(db.cursors, id)
	}

	write(w, r, http.StatusOK, cur.response(http.StatusOK, batch, hasMore))
}

func (s *Server) deleteCursor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := param(r, "id")
	if _, ok := db.cursors[id]; !ok {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorCursorNotFound, "cursor not found"))
		return
	}

	delete(db.cursors, id)

	write(w, r, http.StatusAccepted, map[string]any{"error": false, "code": http.StatusAccepted, "id": id})
}

func (q *aqlQuery) ast() []arangodb.AstNode {
	root := arangodb.AstNode{Type: "root"}

	if q.variable != "" {
		loop := arangodb.AstNode{Type: "for", Subnodes: []arangodb.AstNode{{Type: "variable", Name: q.variable}}}
		if q.collection != "" {
			loop.Subnodes = append(loop.Subnodes, arangodb.AstNode{Type: "collection", Name: q.collection})
		} else {
			loop.Subnodes = append(loop.Subnodes, arangodb.AstNode{Type: "expression"})
		}
		root.Subnodes = append(root.Subnodes, loop)
	}

	names := map[operationKind]string{
		operationFilter: "filter",
		operationSort:   "sort",
		operationLimit:  "limit",
		operationInsert: "insert",
		operationRemove: "remove",
	}
	for _, op := range q.operations {
		node := arangodb.AstNode{Type: names[op.kind]}
		if op.collection != "" {
			node.Subnodes = append(node.Subnodes, arangodb.AstNode{Type: "collection", Name: op.collection})
		}
		root.Subnodes = append(root.Subnodes, node)
	}

	if q.returns != nil {
		root.Subnodes = append(root.Subnodes, arangodb.AstNode{Type: "return"})
	}

	return []arangodb.AstNode{root}
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) {
	request := struct {
		Query string `json:"query"`
	}{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	q, err := parseAQL(request.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, map[string]any{
		"error":       false,
		"code":        http.StatusOK,
		"parsed":      true,
		"collections": append([]string{}, q.collections...),
		"bindVars":    append([]string{}, q.bindVars...),
		"ast":         q.ast(),
	})
}

func (q *aqlQuery) plan() arangodb.ExecutionPlan {
	plan := arangodb.ExecutionPlan{Rules: []string{}}

	id := int64(1)
	node := func(t string, extra map[string]any) {
		n := map[string]any{"type": t, "id": id}
		if id > 1 {
			n["dependencies"] = []int64{id - 1}
		}
		for k, v := range extra {
			n[k] = v
		}
		plan.Nodes = append(plan.Nodes, n)
		id++
	}

	node("SingletonNode", nil)
	plan.EstimatedCost = 1

	if q.variable != "" {
		plan.Variables = append(plan.Variables, arangodb.ExecutionVariable{ID: 0, Name: q.variable})
		if q.collection != "" && !q.bind {
			node("EnumerateCollectionNode", map[string]any{"collection": q.collection})
		} else {
			node("EnumerateListNode", nil)
		}
		plan.EstimatedCost += 10
	}

	for _, op := range q.operations {
		switch op.kind {
		case operationFilter:
			node("FilterNode", nil)
		case operationSort:
			node("SortNode", nil)
		case operationLimit:
			node("LimitNode", nil)
		case operationInsert:
			node("InsertNode", map[string]any{"collection": op.collection})
		case operationRemove:
			node("RemoveNode", map[string]any{"collection": op.collection})
		}
		plan.EstimatedCost++
	}

	if q.returns != nil {
		node("ReturnNode", nil)
	}

	for _, name := range q.collections {
		access := "read"
		for _, op := range q.operations {
			if op.collection == name && (op.kind == operationInsert || op.kind == operationRemove) {
				access = "write"
			}
		}
		plan.Collections = append(plan.Collections, arangodb.ExecutionCollection{Name: name, Type: access})
	}

	return plan
}

func (s *Server) explainQuery(w http.ResponseWriter, r *http.Request) {
	request := struct {
		Query    string         `json:"query"`
		BindVars map[string]any `json:"bindVars"`
		Options  struct {
			AllPlans bool `json:"allPlans"`
		} `json:"options"`
	}{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	q, err := parseAQL(request.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := q.checkBindVars(request.BindVars); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	for _, name := range q.collections {
		if _, err := db.collection(name); err != nil {
			writeError(w, r, err)
			return
		}
	}

	plan := q.plan()
	explain := arangodb.AqlExecutionExplainEntity{
		Warnings:  []arangodb.CursorWarning{},
		Stats:     arangodb.ExplainStats{PlansCreated: 1},
		Cacheable: !q.hasWrites(),
	}
	if request.Options.AllPlans {
		explain.Plans = []arangodb.ExecutionPlan{plan}
	} else {
		explain.Plan = &plan
	}

	write(w, r, http.StatusOK, explain)
}
