package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockContractCaller is a testify mock of ContractCaller.
type mockContractCaller struct {
	mock.Mock
}

func newMockContractCaller(t *testing.T) *mockContractCaller {
	t.Helper()

	m := &mockContractCaller{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockContractCaller) CallContract(
	ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int,
) ([]byte, error) {
	args := m.Called(ctx, call, blockNumber)

	var out []byte
	if b, ok := args.Get(0).([]byte); ok {
		out = b
	}

	return out, args.Error(1)
}

func Test_revertReason(t *testing.T) {
	t.Parallel()

	var (
		tx = types.NewTransaction(
			1,                               // nonce
			common.HexToAddress("0xabc123"), // to address
			big.NewInt(0),                   // value
			21000,                           // gas limit
			big.NewInt(20000000000),         // gas price: 20 Gwei
			[]byte{0xde, 0xad, 0xbe, 0xef},  // data
		)
		receipt = &types.Receipt{BlockNumber: big.NewInt(7)}
	)

	tests := []struct {
		name       string
		beforeFunc func(caller *mockContractCaller)
		wantReason string
		wantErr    string
	}{
		{
			name: "replay does not revert",
			beforeFunc: func(caller *mockContractCaller) {
				caller.On("CallContract",
					mock.Anything,
					mock.AnythingOfType("ethereum.CallMsg"),
					big.NewInt(7),
				).Return([]byte{}, nil).Once()
			},
			wantErr: "reverted with no reason",
		},
		{
			name: "json error with data",
			beforeFunc: func(caller *mockContractCaller) {
				caller.On("CallContract", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, &jsonError{
						Code:    3,
						Message: "execution reverted",
						Data:    []byte("test error data"),
					}).Once()
			},
			wantReason: "test error data",
		},
		{
			name: "plain error",
			beforeFunc: func(caller *mockContractCaller) {
				caller.On("CallContract", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("execution reverted: not owner")).Once()
			},
			wantReason: "execution reverted: not owner",
		},
		{
			name: "missing trie node",
			beforeFunc: func(caller *mockContractCaller) {
				caller.On("CallContract", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, &jsonError{Code: -32000, Message: "missing trie node abc"}).Once()
			},
			wantErr: "not using an archive node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			caller := newMockContractCaller(t)
			tt.beforeFunc(caller)

			got, err := revertReason(t.Context(), caller, common.HexToAddress("0x123"), tx, receipt)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantReason, got)
		})
	}
}

func Test_jsonErrorData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    error
		want    string
		wantErr string
	}{
		{
			name: "valid error",
			give: &jsonError{
				Code:    100,
				Message: "execution reverted",
				Data:    "0x12345678",
			},
			want: "0x12345678",
		},
		{
			name: "wrapped error",
			give: fmt.Errorf("call: %w", &jsonError{Code: 3, Data: "0x08c379a0"}),
			want: "0x08c379a0",
		},
		{
			name:    "nil error",
			give:    nil,
			wantErr: "cannot parse nil error",
		},
		{
			name:    "invalid error type",
			give:    errors.New("invalid"),
			wantErr: "error must be of type jsonError",
		},
		{
			name: "trie error",
			give: &jsonError{
				Code:    -32000,
				Message: "missing trie node",
				Data:    []byte{},
			},
			wantErr: "missing trie node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := jsonErrorData(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// jsonError mirrors the shape of go-ethereum's JSON-RPC error.
type jsonError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (err *jsonError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("json-rpc error %d", err.Code)
	}

	return err.Message
}

func (err *jsonError) ErrorCode() int {
	return err.Code
}

func (err *jsonError) ErrorData() any {
	return err.Data
}
