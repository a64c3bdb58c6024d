package arangodb

type StreamTransactionStatus string

const (
	StreamTransactionRunning   StreamTransactionStatus = "running"
	StreamTransactionCommitted StreamTransactionStatus = "committed"
	StreamTransactionAborted   StreamTransactionStatus = "aborted"
)

type StreamTransactionEntity struct {
	ID     string                  `json:"id"`
	Status StreamTransactionStatus `json:"status"`
}

// TransactionEntity is one entry of the list of stream transactions
type TransactionEntity struct {
	ID    string                  `json:"id"`
	State StreamTransactionStatus `json:"state"`
}
