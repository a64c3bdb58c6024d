package fakearango

import (
	"net/http"
	"slices"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

func requireSystemDatabase(r *http.Request) error {
	if databaseName(r) != systemDatabase {
		return newError(http.StatusForbidden, errors.ErrorArangoUseSystemDatabase, "operation only allowed in system database")
	}
	return nil
}

func (s *Server) listDatabases(w http.ResponseWriter, r *http.Request) {
	if err := requireSystemDatabase(r); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	slices.Sort(names)

	writeResult(w, r, http.StatusOK, names)
}

func (s *Server) accessibleDatabases(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := s.users[callerFromContext(r.Context())]

	names := []string{}
	for name := range s.databases {
		if caller != nil && caller.databasePermission(name).CanRead() {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	writeResult(w, r, http.StatusOK, names)
}

func (s *Server) currentDatabase(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, r, http.StatusOK, db.entity())
}

func (s *Server) createDatabase(w http.ResponseWriter, r *http.Request) {
	if err := requireSystemDatabase(r); err != nil {
		writeError(w, r, err)
		return
	}

	request := arangodb.DatabaseCreateRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(request.Name) || request.Name[0] == '_' {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorArangoDatabaseNameInvalid, "database name invalid"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.databases[request.Name]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate database name '%s'", request.Name))
		return
	}

	s.databases[request.Name] = newDatabase(s.nextID(), request.Name)

	for _, du := range request.Users {
		u, ok := s.users[du.Username]
		if !ok {
			u = newUser(du.Username, du.Password, du.Active, du.Extra)
			s.users[du.Username] = u
		}
		u.databases[request.Name] = arangodb.PermissionsReadWrite
	}

	writeResult(w, r, http.StatusCreated, true)
}

func (s *Server) dropDatabase(w http.ResponseWriter, r *http.Request) {
	if err := requireSystemDatabase(r); err != nil {
		writeError(w, r, err)
		return
	}

	name := param(r, "name")
	if name == systemDatabase {
		writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "the system database cannot be dropped"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.databases[name]; !ok {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorArangoDatabaseNotFound, "database not found: %s", name))
		return
	}

	delete(s.databases, name)

	for id, trx := range s.transactions {
		if trx.database == name {
			delete(s.transactions, id)
		}
	}

	for _, u := range s.users {
		delete(u.databases, name)
		delete(u.collections, name)
	}

	writeResult(w, r, http.StatusOK, true)
}
