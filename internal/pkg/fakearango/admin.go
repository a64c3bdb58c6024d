package fakearango

import (
	"net/http"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	v := arangodb.VersionEntity{Server: "arango", Version: serverVersion, License: "community"}
	if queryBool(r, "details", false) {
		v.Details = map[string]any{"mode": "server", "role": string(s.cfg.role), "engine": "rocksdb"}
	}
	write(w, r, http.StatusOK, v)
}

func (s *Server) engine(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, arangodb.EngineEntity{Name: "rocksdb"})
}

type endpoint struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) clusterEndpoints(w http.ResponseWriter, r *http.Request) {
	if len(s.cfg.endpoints) == 0 {
		writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "this API is only available in a cluster"))
		return
	}

	endpoints := []endpoint{}
	for _, e := range s.cfg.endpoints {
		endpoints = append(endpoints, endpoint{Endpoint: e})
	}

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "endpoints": endpoints})
}

func (s *Server) serverRole(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "role": s.cfg.role})
}

func (s *Server) serverIdentity(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "id": s.serverID})
}

func (s *Server) logLevel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	write(w, r, http.StatusOK, s.logLevels)
}

func (s *Server) setLogLevel(w http.ResponseWriter, r *http.Request) {
	levels := arangodb.LogLevelEntity{}
	if err := decode(r, &levels); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for topic, level := range levels {
		s.logLevels[topic] = level
	}

	write(w, r, http.StatusOK, s.logLevels)
}

func (s *Server) logEntries(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, arangodb.LogEntriesEntity{Messages: []arangodb.LogMessage{}})
}

func (s *Server) reloadRouting(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
