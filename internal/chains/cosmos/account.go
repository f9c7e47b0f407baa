package cosmos

import (
	"context"
	"fmt"

	rpcclient "github.com/cometbft/cometbft/rpc/client"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"google.golang.org/protobuf/encoding/protowire"
)

const accountQueryPath = "/cosmos.auth.v1beta1.Query/Account"

// resyncAccount loads the signer's account number and sequence from the auth
// module. Called on first use and after a sequence conflict.
func (c *Client) resyncAccount(ctx context.Context) error {
	request := authtypes.QueryAccountRequest{Address: c.signer.address}
	req, err := request.Marshal()
	if err != nil {
		return fmt.Errorf("marshal account request: %w", err)
	}

	res, err := c.rpc.ABCIQueryWithOptions(ctx, accountQueryPath, req, rpcclient.ABCIQueryOptions{})
	if err != nil {
		return fmt.Errorf("query account %s: %w", c.signer.address, err)
	}
	if res.Response.IsErr() {
		return fmt.Errorf("account query for %s failed with code %d: %s",
			c.signer.address, res.Response.Code, res.Response.Log)
	}

	accountNumber, sequence, err := parseAccountResponse(res.Response.Value)
	if err != nil {
		return fmt.Errorf("decode account %s: %w", c.signer.address, err)
	}
	c.signer.accountNumber = accountNumber
	c.signer.sequence = sequence
	c.signer.loaded = true
	return nil
}

// parseAccountResponse unwraps QueryAccountResponse{account: Any{BaseAccount}}.
func parseAccountResponse(bz []byte) (accountNumber, sequence uint64, err error) {
	var response authtypes.QueryAccountResponse
	if err := response.Unmarshal(bz); err != nil {
		return 0, 0, fmt.Errorf("unmarshal account response: %w", err)
	}
	if response.Account == nil {
		return 0, 0, fmt.Errorf("account response holds no account")
	}
	var account authtypes.BaseAccount
	if err := account.Unmarshal(response.Account.Value); err != nil {
		return 0, 0, fmt.Errorf("unmarshal base account: %w", err)
	}
	return account.AccountNumber, account.Sequence, nil
}

// clientStateLatestHeight reads the latest height (field 3) out of a stored
// client state in the layout this relayer writes on client creation. The
// groth16 and mock client states have no generated Go types, so the field is
// pulled straight off the wire.
func clientStateLatestHeight(bz []byte) (uint64, error) {
	var height uint64
	var found bool
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		bz = bz[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(bz)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			if num == 3 {
				height = v
				found = true
			}
			bz = bz[n:]
		case protowire.BytesType:
			_, n := protowire.ConsumeBytes(bz)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			bz = bz[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(bz)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			bz = bz[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(bz)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			bz = bz[n:]
		default:
			return 0, fmt.Errorf("unsupported wire type %d for field %d", typ, num)
		}
	}
	if !found {
		return 0, fmt.Errorf("client state carries no latest height")
	}
	return height, nil
}
