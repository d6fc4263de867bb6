package chaincode

import (
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/p2eengineering/kalp-sdk-public/response"
	"google.golang.org/protobuf/types/known/timestamppb"
)

//go:generate counterfeiter -o mocks/transactioncontext.go -fake-name TransactionContext . transactionContext

// transactionContext is the part of kalpsdk.TransactionContextInterface the
// contract uses.
type transactionContext interface {
	GetState(key string) ([]byte, error)
	PutStateWithoutKYC(key string, value []byte) error
	SetEvent(name string, payload []byte) error
	GetClientIdentity() cid.ClientIdentity
	GetTxID() string
	GetTxTimestamp() (*timestamppb.Timestamp, error)
	GetChannelID() string
	InvokeChaincode(chaincodeName string, args [][]byte, channel string) response.Response
}

//go:generate counterfeiter -o mocks/clientidentity.go -fake-name ClientIdentity . clientIdentity
type clientIdentity interface {
	cid.ClientIdentity
}
