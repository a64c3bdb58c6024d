package arangodb

type DatabaseEntity struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Path              string            `json:"path,omitempty"`
	IsSystem          bool              `json:"isSystem"`
	Sharding          string            `json:"sharding,omitempty"`
	ReplicationFactor ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern      int               `json:"writeConcern,omitempty"`
}

type VersionEntity struct {
	Server  string         `json:"server"`
	Version string         `json:"version"`
	License string         `json:"license,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type EngineEntity struct {
	Name     string         `json:"name"`
	Supports map[string]any `json:"supports,omitempty"`
}

type ServerRole string

const (
	ServerRoleSingle      ServerRole = "SINGLE"
	ServerRoleAgent       ServerRole = "AGENT"
	ServerRoleCoordinator ServerRole = "COORDINATOR"
	ServerRolePrimary     ServerRole = "PRIMARY"
	ServerRoleUndefined   ServerRole = "UNDEFINED"
)

type LogLevel string

const (
	LogLevelFatal   LogLevel = "FATAL"
	LogLevelError   LogLevel = "ERROR"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelTrace   LogLevel = "TRACE"
)

type LogMessage struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Level   string `json:"level"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type LogEntriesEntity struct {
	Total    int64        `json:"total"`
	Messages []LogMessage `json:"messages"`
}

// LogLevelEntity maps log topics to their level
type LogLevelEntity map[string]LogLevel
