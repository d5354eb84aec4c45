package session

import "smiles/internal/model"

// State is the lifecycle phase of the session.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot is the externally visible session state. Outside the loading
// phase, User and Token are either both set or both empty.
type Snapshot struct {
	State           State
	IsAuthenticated bool
	IsLoading       bool
	User            *model.UserInfo
	Token           string
}
