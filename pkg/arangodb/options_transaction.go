package arangodb

type TransactionCollections struct {
	Read          []string `json:"read,omitempty"`
	Write         []string `json:"write,omitempty"`
	Exclusive     []string `json:"exclusive,omitempty"`
	AllowImplicit *bool    `json:"allowImplicit,omitempty"`
}

// TransactionOptions configures a server side JavaScript transaction
type TransactionOptions struct {
	Params               any
	LockTimeout          int
	WaitForSync          bool
	ReadCollections      []string
	WriteCollections     []string
	ExclusiveCollections []string
	AllowImplicit        *bool
	MaxTransactionSize   int64
}

type TransactionRequest struct {
	Collections        TransactionCollections `json:"collections"`
	Action             string                 `json:"action"`
	Params             any                    `json:"params,omitempty"`
	LockTimeout        int                    `json:"lockTimeout,omitempty"`
	WaitForSync        bool                   `json:"waitForSync,omitempty"`
	MaxTransactionSize int64                  `json:"maxTransactionSize,omitempty"`
}

func (o *TransactionOptions) Request(action string) TransactionRequest {
	r := TransactionRequest{Action: action}
	if o == nil {
		return r
	}

	r.Collections = TransactionCollections{
		Read:          o.ReadCollections,
		Write:         o.WriteCollections,
		Exclusive:     o.ExclusiveCollections,
		AllowImplicit: o.AllowImplicit,
	}
	r.Params = o.Params
	r.LockTimeout = o.LockTimeout
	r.WaitForSync = o.WaitForSync
	r.MaxTransactionSize = o.MaxTransactionSize

	return r
}

type StreamTransactionOptions struct {
	LockTimeout          int
	WaitForSync          bool
	ReadCollections      []string
	WriteCollections     []string
	ExclusiveCollections []string
	AllowImplicit        *bool
	MaxTransactionSize   int64
	AllowDirtyRead       bool
}

type StreamTransactionRequest struct {
	Collections        TransactionCollections `json:"collections"`
	LockTimeout        int                    `json:"lockTimeout,omitempty"`
	WaitForSync        bool                   `json:"waitForSync,omitempty"`
	MaxTransactionSize int64                  `json:"maxTransactionSize,omitempty"`
}

func (o *StreamTransactionOptions) Request() StreamTransactionRequest {
	r := StreamTransactionRequest{}
	if o == nil {
		return r
	}

	r.Collections = TransactionCollections{
		Read:          o.ReadCollections,
		Write:         o.WriteCollections,
		Exclusive:     o.ExclusiveCollections,
		AllowImplicit: o.AllowImplicit,
	}
	r.LockTimeout = o.LockTimeout
	r.WaitForSync = o.WaitForSync
	r.MaxTransactionSize = o.MaxTransactionSize

	return r
}

func (o *StreamTransactionOptions) Headers() map[string]string {
	if o == nil || !o.AllowDirtyRead {
		return map[string]string{}
	}
	return map[string]string{HeaderAllowDirtyRead: "true"}
}
