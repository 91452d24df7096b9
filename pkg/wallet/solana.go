package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"cross-swap/config"
)

// fee per signature in lamports
const lamportsPerSignature = 5000

// SolanaDepositor sends SOL and SPL transfers
type SolanaDepositor struct {
	config     config.SolanaConfig
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

func NewSolanaDepositor(cfg config.SolanaConfig) (*SolanaDepositor, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}

	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &SolanaDepositor{
		config:     cfg,
		client:     rpc.New(cfg.RPCUrl),
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

func (s *SolanaDepositor) Address() string {
	return s.publicKey.String()
}

// SendDeposit sends SOL when Contract is empty, otherwise SPL tokens of that mint
func (s *SolanaDepositor) SendDeposit(ctx context.Context, t Transfer) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(t.To)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	amount, err := strconv.ParseUint(t.Amount, 10, 64)
	if err != nil || amount == 0 {
		return "", fmt.Errorf("invalid amount %q: expected a positive base-unit integer", t.Amount)
	}

	var instructions []solana.Instruction
	if t.Contract == "" {
		instructions, err = s.nativeInstructions(ctx, recipient, amount)
	} else {
		instructions, err = s.splInstructions(ctx, recipient, t.Contract, amount)
	}
	if err != nil {
		return "", err
	}

	sig, err := s.send(ctx, instructions)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (s *SolanaDepositor) nativeInstructions(ctx context.Context, recipient solana.PublicKey, lamports uint64) ([]solana.Instruction, error) {
	balance, err := s.client.GetBalance(ctx, s.publicKey, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if need := lamports + lamportsPerSignature; balance.Value < need {
		return nil, fmt.Errorf("insufficient balance: have %d lamports, need %d lamports (including fees)", balance.Value, need)
	}

	return []solana.Instruction{
		system.NewTransferInstruction(lamports, s.publicKey, recipient).Build(),
	}, nil
}

func (s *SolanaDepositor) splInstructions(ctx context.Context, recipient solana.PublicKey, mintStr string, amount uint64) ([]solana.Instruction, error) {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint address: %w", err)
	}

	source, _, err := solana.FindAssociatedTokenAddress(s.publicKey, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	bal, err := s.client.GetTokenAccountBalance(ctx, source, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	have, err := strconv.ParseUint(bal.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token balance: %w", err)
	}
	if have < amount {
		return nil, fmt.Errorf("insufficient token balance: have %d, need %d", have, amount)
	}

	exists, err := s.accountExists(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to check destination account: %w", err)
	}

	var instructions []solana.Instruction
	if !exists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(s.publicKey, recipient, mint).Build())
	}
	instructions = append(instructions, token.NewTransferInstruction(
		amount,
		source,
		dest,
		s.publicKey,
		[]solana.PublicKey{},
	).Build())
	return instructions, nil
}

func (s *SolanaDepositor) send(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(s.publicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.config.SkipPreflight,
		PreflightCommitment: s.commitment(),
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

func (s *SolanaDepositor) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := s.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, err
	}
	return info.Value != nil, nil
}

func (s *SolanaDepositor) commitment() rpc.CommitmentType {
	switch strings.ToLower(s.config.Commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

func (s *SolanaDepositor) Close() {}
