package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"wastelive/internal/contracts"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

const defaultPollInterval = 2 * time.Second

// EthClient talks to the items contract over JSON-RPC.
type EthClient struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	address      common.Address
	transacts    *bind.TransactOpts
	pollInterval time.Duration
	log          zerolog.Logger
}

type EthClientConfig struct {
	RPCURL          string
	ContractAddress string
	// Exactly one of PrivateKeyHex or ClefEndpoint attaches a signer; with
	// neither the client can only read prices.
	PrivateKeyHex string
	ClefEndpoint  string
	PollInterval  time.Duration
	Logger        zerolog.Logger
}

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contracts.WasteLiveItemsABI))
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	c := &EthClient{
		client:       cli,
		contract:     bind.NewBoundContract(address, parsedABI, cli, cli, cli),
		address:      address,
		pollInterval: cfg.PollInterval,
		log:          cfg.Logger.With().Str("component", "chain").Logger(),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}

	switch {
	case cfg.PrivateKeyHex != "":
		pk, err := parsePrivateKey(cfg.PrivateKeyHex)
		if err != nil {
			cli.Close()
			return nil, err
		}
		chainID, err := cli.ChainID(ctx)
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		c.transacts, err = bind.NewKeyedTransactorWithChainID(pk, chainID)
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("transactor: %w", err)
		}
	case cfg.ClefEndpoint != "":
		signer, err := external.NewExternalSigner(cfg.ClefEndpoint)
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("connect external signer: %w", err)
		}
		accs := signer.Accounts()
		if len(accs) == 0 {
			cli.Close()
			return nil, fmt.Errorf("external signer exposes no accounts")
		}
		c.transacts = bind.NewClefTransactor(signer, accs[0])
	}

	if c.transacts != nil {
		c.transacts.GasLimit = 0 // let node estimate
		c.log.Info().Str("from", c.transacts.From.Hex()).Str("contract", address.Hex()).Msg("signer attached")
	} else {
		c.log.Warn().Str("contract", address.Hex()).Msg("no signer configured, client is read-only")
	}
	return c, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func (c *EthClient) Close() {
	c.client.Close()
}

func (c *EthClient) ItemPrice(ctx context.Context, itemID uint64) (*uint256.Int, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, contracts.MethodItemPrices, new(big.Int).SetUint64(itemID))
	if err != nil {
		return nil, fmt.Errorf("call itemPrices(%d): %w", itemID, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("itemPrices(%d): unexpected %d outputs", itemID, len(out))
	}
	raw, ok := out[0].(*big.Int)
	if !ok || raw == nil {
		return nil, fmt.Errorf("itemPrices(%d): unexpected output type %T", itemID, out[0])
	}
	price, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, ErrPriceTooWide
	}
	return price, nil
}

func (c *EthClient) MintItem(ctx context.Context, call MintCall) (common.Hash, error) {
	if c.transacts == nil {
		return common.Hash{}, ErrReadOnly
	}
	if call.Quantity == nil || call.Value == nil {
		return common.Hash{}, fmt.Errorf("quantity and value are required")
	}

	opts := *c.transacts
	opts.Context = ctx
	opts.Value = call.Value.ToBig()

	tx, err := c.contract.Transact(&opts, contracts.MethodMintItem, new(big.Int).SetUint64(call.ItemID), call.Quantity.ToBig())
	if err != nil {
		if IsUserRejected(err) {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return common.Hash{}, fmt.Errorf("mint item tx: %w", err)
	}

	c.log.Info().Uint64("item", call.ItemID).Str("tx", tx.Hash().Hex()).Str("value", call.Value.Dec()).Msg("mint submitted")
	return tx.Hash(), nil
}

// WaitForReceipt polls until the transaction is mined or ctx is cancelled.
func (c *EthClient) WaitForReceipt(ctx context.Context, hash common.Hash) (Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return toReceipt(hash, receipt)
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return Receipt{}, fmt.Errorf("fetch receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toReceipt(hash common.Hash, r *types.Receipt) (Receipt, error) {
	out := Receipt{TxHash: hash, Status: ReceiptConfirmed}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.Status != types.ReceiptStatusSuccessful {
		out.Status = ReceiptReverted
		return out, ErrReverted
	}
	return out, nil
}

func (c *EthClient) Connected() bool {
	return c.transacts != nil
}

func (c *EthClient) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id %s out of range", id)
	}
	return id.Uint64(), nil
}

func (c *EthClient) Ping(ctx context.Context) error {
	_, err := c.client.BlockNumber(ctx)
	return err
}
