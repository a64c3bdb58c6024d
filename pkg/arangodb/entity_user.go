package arangodb

type UserEntity struct {
	User           string         `json:"user"`
	Active         bool           `json:"active"`
	Extra          map[string]any `json:"extra,omitempty"`
	ChangePassword bool           `json:"changePassword,omitempty"`
}

type Permissions string

const (
	PermissionsReadWrite Permissions = "rw"
	PermissionsReadOnly  Permissions = "ro"
	PermissionsNone      Permissions = "none"
	PermissionsUndefined Permissions = "undefined"
)

func (p Permissions) Valid() bool {
	switch p {
	case PermissionsReadWrite, PermissionsReadOnly, PermissionsNone, PermissionsUndefined:
		return true
	}
	return false
}

// CanRead reports whether p grants at least read access
func (p Permissions) CanRead() bool {
	return p == PermissionsReadWrite || p == PermissionsReadOnly
}

func (p Permissions) CanWrite() bool {
	return p == PermissionsReadWrite
}
