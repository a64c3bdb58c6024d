package fakearango

import (
	"net/http"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

// javaScriptTransaction is refused, the fake has no JavaScript engine
func (s *Server) javaScriptTransaction(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, newError(http.StatusNotImplemented, errors.ErrorNotImplemented, "JavaScript transactions are not supported"))
}

// Stream transactions only track their status. Writes made within a transaction are applied
// immediately and are not rolled back on abort.
func (s *Server) beginTransaction(w http.ResponseWriter, r *http.Request) {
	request := arangodb.StreamTransactionRequest{}
	if err := decode(r, &request); err != nil {
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

	c := request.Collections
	for _, name := range slices.Concat(c.Read, c.Write, c.Exclusive) {
		if _, err := db.collection(name); err != nil {
			writeError(w, r, err)
			return
		}
	}

	trx := &transaction{
		database: db.name,
		entity:   arangodb.StreamTransactionEntity{ID: s.nextID(), Status: arangodb.StreamTransactionRunning},
	}
	s.transactions[trx.entity.ID] = trx

	writeResult(w, r, http.StatusCreated, trx.entity)
}

func (s *Server) lookupTransaction(r *http.Request) (*transaction, error) {
	id := param(r, "id")
	trx, ok := s.transactions[id]
	if !ok || trx.database != databaseName(r) {
		return nil, newError(http.StatusNotFound, errors.ErrorTransactionNotFound, "transaction '%s' not found", id)
	}
	return trx, nil
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trx, err := s.lookupTransaction(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, r, http.StatusOK, trx.entity)
}

func (s *Server) finishTransaction(w http.ResponseWriter, r *http.Request, status arangodb.StreamTransactionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trx, err := s.lookupTransaction(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch trx.entity.Status {
	case status:
	case arangodb.StreamTransactionRunning:
		trx.entity.Status = status
	default:
		writeError(w, r, newError(http.StatusConflict, errors.ErrorTransactionAborted,
			"transaction '%s' is already %s", trx.entity.ID, trx.entity.Status))
		return
	}

	writeResult(w, r, http.StatusOK, trx.entity)
}

func (s *Server) commitTransaction(w http.ResponseWriter, r *http.Request) {
	s.finishTransaction(w, r, arangodb.StreamTransactionCommitted)
}

func (s *Server) abortTransaction(w http.ResponseWriter, r *http.Request) {
	s.finishTransaction(w, r, arangodb.StreamTransactionAborted)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbName := databaseName(r)

	transactions := []arangodb.TransactionEntity{}
	for _, trx := range s.transactions {
		if trx.database == dbName && trx.entity.Status == arangodb.StreamTransactionRunning {
			transactions = append(transactions, arangodb.TransactionEntity{ID: trx.entity.ID, State: trx.entity.Status})
		}
	}
	slices.SortFunc(transactions, func(a, b arangodb.TransactionEntity) int {
		return strings.Compare(a.ID, b.ID)
	})

	write(w, r, http.StatusOK, map[string]any{"transactions": transactions})
}
