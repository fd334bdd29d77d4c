package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// DefaultRPC is used when VAULT_RPC_URL is not set
	DefaultRPC = "https://rpc.sepolia.mantle.xyz"

	// DefaultChainID matches the default RPC
	DefaultChainID = 5003
)

// vaultABI covers the two methods the server calls. payPlayer credits a
// winner, settleRound closes a round's books on chain.
const vaultABI = `[
	{"type":"function","name":"payPlayer","stateMutability":"nonpayable",
	 "inputs":[{"name":"player","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"settleRound","stateMutability":"nonpayable",
	 "inputs":[{"name":"roundId","type":"uint256"}],
	 "outputs":[]}
]`

// VaultClient wraps the payout vault contract.
type VaultClient struct {
	Client      *ethclient.Client
	Contract    *bind.BoundContract
	ABI         abi.ABI
	Address     common.Address
	ChainID     int64
	PrivateKey  *ecdsa.PrivateKey
	FromAddress common.Address
}

// NewVaultClient builds a client from VAULT_RPC_URL, VAULT_ADDRESS,
// VAULT_CHAIN_ID and SERVER_PRIVATE_KEY.
func NewVaultClient() (*VaultClient, error) {
	rpcURL := os.Getenv("VAULT_RPC_URL")
	if rpcURL == "" {
		rpcURL = DefaultRPC
	}

	vaultAddress := os.Getenv("VAULT_ADDRESS")
	if vaultAddress == "" {
		return nil, fmt.Errorf("VAULT_ADDRESS environment variable not set")
	}
	if !common.IsHexAddress(vaultAddress) {
		return nil, fmt.Errorf("VAULT_ADDRESS is not a valid address: %s", vaultAddress)
	}

	chainID := int64(DefaultChainID)
	if raw := os.Getenv("VAULT_CHAIN_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse VAULT_CHAIN_ID: %v", err)
		}
		chainID = parsed
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %v", err)
	}

	contractABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %v", err)
	}

	privateKeyHex := os.Getenv("SERVER_PRIVATE_KEY")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("SERVER_PRIVATE_KEY environment variable not set")
	}
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}
	fromAddress := crypto.PubkeyToAddress(*publicKeyECDSA)

	address := common.HexToAddress(vaultAddress)
	contract := bind.NewBoundContract(address, contractABI, client, client, client)

	log.Printf("✅ Vault client initialized - Address: %s, Owner: %s", vaultAddress, fromAddress.Hex())

	return &VaultClient{
		Client:      client,
		Contract:    contract,
		ABI:         contractABI,
		Address:     address,
		ChainID:     chainID,
		PrivateKey:  privateKey,
		FromAddress: fromAddress,
	}, nil
}

// transact signs and sends one contract call. Fire and forget: the tx
// hash is logged and never awaited, payouts must not hold up the game.
func (c *VaultClient) transact(ctx context.Context, method string, args ...interface{}) error {
	if _, ok := c.ABI.Methods[method]; !ok {
		return fmt.Errorf("abi does not contain %s", method)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.PrivateKey, big.NewInt(c.ChainID))
	if err != nil {
		return fmt.Errorf("failed to create transactor: %v", err)
	}
	auth.Context = ctx
	auth.Value = big.NewInt(0)

	nonce, err := c.Client.PendingNonceAt(ctx, c.FromAddress)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %v", err)
	}
	auth.Nonce = big.NewInt(int64(nonce))

	gasPrice, err := c.Client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %v", err)
	}
	auth.GasPrice = gasPrice

	input, err := c.ABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack input: %v", err)
	}

	gasLimit, err := c.Client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.FromAddress,
		To:   &c.Address,
		Data: input,
	})
	if err != nil {
		log.Printf("⚠️ Gas estimation failed for %s, using default: %v", method, err)
		auth.GasLimit = uint64(200000)
	} else {
		auth.GasLimit = gasLimit + (gasLimit * 20 / 100)
	}

	tx, err := c.Contract.Transact(auth, method, args...)
	if err != nil {
		log.Printf("❌ %s failed: %v", method, err)
		return err
	}

	log.Printf("📤 %s tx sent: %s (not waiting for confirmation)", method, tx.Hash().Hex())
	return nil
}

// PayPlayer sends a winner their payout in wei.
func (c *VaultClient) PayPlayer(ctx context.Context, player common.Address, amount *big.Int) error {
	log.Printf("💸 Calling payPlayer(player=%s, amount=%s wei)", player.Hex(), amount.String())
	return c.transact(ctx, "payPlayer", player, amount)
}

// SettleRound closes a round's books on chain.
func (c *VaultClient) SettleRound(ctx context.Context, roundID *big.Int) error {
	return c.transact(ctx, "settleRound", roundID)
}

// Close closes the RPC connection.
func (c *VaultClient) Close() {
	c.Client.Close()
}
