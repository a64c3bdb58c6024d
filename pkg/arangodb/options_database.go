package arangodb

type DatabaseUser struct {
	Username string         `json:"username"`
	Password string         `json:"passwd,omitempty"`
	Active   *bool          `json:"active,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type DatabaseCreateOptions struct {
	Users             []DatabaseUser
	Sharding          string
	ReplicationFactor ReplicationFactor
	WriteConcern      int
}

type databaseCreateRequestOptions struct {
	Sharding          string            `json:"sharding,omitempty"`
	ReplicationFactor ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern      int               `json:"writeConcern,omitempty"`
}

type DatabaseCreateRequest struct {
	Name    string                        `json:"name"`
	Users   []DatabaseUser                `json:"users,omitempty"`
	Options *databaseCreateRequestOptions `json:"options,omitempty"`
}

func (o *DatabaseCreateOptions) Request(name string) DatabaseCreateRequest {
	r := DatabaseCreateRequest{Name: name}
	if o == nil {
		return r
	}

	r.Users = o.Users
	if o.Sharding != "" || o.ReplicationFactor != 0 || o.WriteConcern != 0 {
		r.Options = &databaseCreateRequestOptions{
			Sharding:          o.Sharding,
			ReplicationFactor: o.ReplicationFactor,
			WriteConcern:      o.WriteConcern,
		}
	}

	return r
}

type UserCreateOptions struct {
	Active *bool
	Extra  map[string]any
}

type UserCreateRequest struct {
	User     string         `json:"user"`
	Password string         `json:"passwd"`
	Active   *bool          `json:"active,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func (o *UserCreateOptions) Request(user, password string) UserCreateRequest {
	r := UserCreateRequest{User: user, Password: password}
	if o == nil {
		return r
	}

	r.Active = o.Active
	r.Extra = o.Extra

	return r
}

// UserUpdateOptions is sent as is, unset fields are left unchanged by an update and reset by
// a replace
type UserUpdateOptions struct {
	Password string         `json:"passwd,omitempty"`
	Active   *bool          `json:"active,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}
