package fakearango

import (
	"net/http"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

func newUser(name, password string, active *bool, extra map[string]any) *user {
	return &user{
		entity: arangodb.UserEntity{
			User:   name,
			Active: active == nil || *active,
			Extra:  extra,
		},
		password:    password,
		databases:   map[string]arangodb.Permissions{},
		collections: map[string]map[string]arangodb.Permissions{},
	}
}

// lookupUser returns the user named in the path. Callers hold s.mu.
func (s *Server) lookupUser(r *http.Request) (*user, error) {
	name := param(r, "user")
	u, ok := s.users[name]
	if !ok {
		return nil, newError(http.StatusNotFound, errors.ErrorUserNotFound, "user not found")
	}
	return u, nil
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]arangodb.UserEntity, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.entity)
	}
	slices.SortFunc(users, func(a, b arangodb.UserEntity) int {
		return strings.Compare(a.User, b.User)
	})

	writeResult(w, r, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	request := arangodb.UserCreateRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if request.User == "" || strings.ContainsAny(request.User, "/:") {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorUserInvalidName, "invalid user name"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[request.User]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorUserDuplicate, "duplicate user"))
		return
	}

	u := newUser(request.User, request.Password, request.Active, request.Extra)
	s.users[request.User] = u

	write(w, r, http.StatusCreated, u.entity)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, u.entity)
}

func (s *Server) changeUser(w http.ResponseWriter, r *http.Request, replace bool) {
	request := arangodb.UserUpdateOptions{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if replace {
		u.password = request.Password
		u.entity.Active = request.Active == nil || *request.Active
		u.entity.Extra = request.Extra
	} else {
		if request.Password != "" {
			u.password = request.Password
		}
		if request.Active != nil {
			u.entity.Active = *request.Active
		}
		if request.Extra != nil {
			u.entity.Extra = merge(u.entity.Extra, request.Extra, false, true)
		}
	}

	write(w, r, http.StatusOK, u.entity)
}

func (s *Server) replaceUser(w http.ResponseWriter, r *http.Request) {
	s.changeUser(w, r, true)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	s.changeUser(w, r, false)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	delete(s.users, u.entity.User)

	write(w, r, http.StatusAccepted, map[string]any{"error": false, "code": http.StatusAccepted})
}

func (s *Server) userDatabases(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := map[string]arangodb.Permissions{}
	for name := range s.databases {
		if p := u.databasePermission(name); p.CanRead() {
			result[name] = p
		}
	}

	writeResult(w, r, http.StatusOK, result)
}

func (s *Server) getPermission(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	database := param(r, "name")
	collection := param(r, "collection")

	if collection == "" {
		writeResult(w, r, http.StatusOK, u.databasePermission(database))
		return
	}

	writeResult(w, r, http.StatusOK, u.collectionPermission(database, collection))
}

func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request) {
	request := struct {
		Grant arangodb.Permissions `json:"grant"`
	}{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !request.Grant.Valid() || request.Grant == arangodb.PermissionsUndefined {
		writeError(w, r, badParameter("invalid grant %q", request.Grant))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	database := param(r, "name")
	collection := param(r, "collection")

	if database != "*" {
		if _, ok := s.databases[database]; !ok {
			writeError(w, r, newError(http.StatusNotFound, errors.ErrorArangoDatabaseNotFound, "database not found: %s", database))
			return
		}
	}

	key := database
	if collection == "" {
		u.databases[database] = request.Grant
	} else {
		if _, ok := u.collections[database]; !ok {
			u.collections[database] = map[string]arangodb.Permissions{}
		}
		u.collections[database][collection] = request.Grant
		key = database + "/" + collection
	}

	write(w, r, http.StatusOK, map[string]any{key: request.Grant, "error": false, "code": http.StatusOK})
}

func (s *Server) resetPermission(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	database := param(r, "name")
	collection := param(r, "collection")

	if collection == "" {
		delete(u.databases, database)
	} else if perms, ok := u.collections[database]; ok {
		delete(perms, collection)
	}

	write(w, r, http.StatusAccepted, map[string]any{"error": false, "code": http.StatusAccepted})
}
