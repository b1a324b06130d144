package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// TransferRequest moves Amount, in the source wallet's currency, from one
// wallet to another. Notes, when set, are appended to the generated ones.
type TransferRequest struct {
	FromWalletID int64
	ToWalletID   int64
	Amount       decimal.Decimal
	Notes        string
	Date         core.Date // zero means today
}

// Transfer is the pair of rows a transfer produced.
type Transfer struct {
	Debit  core.Transaction
	Credit core.Transaction
}

// TransferService moves money between two wallets as a pair of linked rows.
type TransferService struct {
	repo   *storage.SQLiteRepository
	ledger *LedgerService
	now    func() time.Time
	log    *log.Logger
}

func NewTransferService(repo *storage.SQLiteRepository, ledger *LedgerService, opts ...Option) *TransferService {
	s := newSettings(opts)
	return &TransferService{
		repo:   repo,
		ledger: ledger,
		now:    s.now,
		log:    s.logger.WithComponent(log.ComponentTransfer),
	}
}

// CreditAmount converts amount from the source wallet's currency into the
// destination's through both wallets' rates to the default currency, rounded
// to the destination currency's minor units. Same-currency transfers credit
// exactly the debited amount.
func CreditAmount(amount decimal.Decimal, from, to core.Wallet) decimal.Decimal {
	if from.Currency == to.Currency {
		return amount
	}
	converted := amount.Mul(from.ExchangeRate).Div(to.ExchangeRate)
	return core.RoundToCurrency(converted, to.Currency)
}

// TransferBetweenWallets debits the source and credits the destination in one
// storage transaction. A rejected or failed transfer leaves no rows behind.
func (s *TransferService) TransferBetweenWallets(ctx context.Context, req TransferRequest) (Transfer, error) {
	fields := log.NewFields().WithOperation(log.OpTransfer).WithAmount(req.Amount)
	fields["from_wallet"] = req.FromWalletID
	fields["to_wallet"] = req.ToWalletID

	tr, err := s.transfer(ctx, req)
	if err != nil {
		s.log.LogError(ctx, "Transfer failed", err, fields)
		return Transfer{}, err
	}

	s.log.InfoContext(ctx, "Transfer completed",
		"debit_id", tr.Debit.ID,
		"credit_id", tr.Credit.ID,
		"debit_amount", tr.Debit.Amount.String(),
		"credit_amount", tr.Credit.Amount.String())
	return tr, nil
}

func (s *TransferService) transfer(ctx context.Context, req TransferRequest) (Transfer, error) {
	if req.FromWalletID == req.ToWalletID {
		return Transfer{}, fmt.Errorf("transfer: %w: source and destination are the same wallet", core.ErrInvalidTransfer)
	}
	if !req.Amount.IsPositive() {
		return Transfer{}, fmt.Errorf("transfer: %w", core.ErrInvalidAmount)
	}

	from, err := s.repo.GetWallet(ctx, req.FromWalletID)
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer source: %w", err)
	}
	to, err := s.repo.GetWallet(ctx, req.ToWalletID)
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer destination: %w", err)
	}

	balance, err := s.ledger.GetWalletBalance(ctx, from.ID)
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer: %w", err)
	}
	if req.Amount.GreaterThan(balance) {
		return Transfer{}, fmt.Errorf("transfer %s from %q (balance %s): %w",
			req.Amount, from.Name, balance, core.ErrInsufficientFunds)
	}

	credit := CreditAmount(req.Amount, from, to)
	if !credit.IsPositive() {
		return Transfer{}, fmt.Errorf("transfer: %w: amount rounds to zero in %s", core.ErrInvalidAmount, to.Currency)
	}

	day := req.Date
	if day.IsZero() {
		day = core.DateOf(s.now())
	}

	debitRow := core.Transaction{
		WalletID:  from.ID,
		Direction: core.Expense,
		Amount:    req.Amount,
		Category:  core.TransferCategory,
		Date:      day,
		Notes:     transferNotes("to "+to.Name, req.Notes),
	}
	creditRow := core.Transaction{
		WalletID:  to.ID,
		Direction: core.Income,
		Amount:    credit,
		Category:  core.TransferCategory,
		Date:      day,
		Notes:     transferNotes("from "+from.Name, req.Notes),
	}

	out, in, err := s.repo.CreateTransferPair(ctx, debitRow, creditRow)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			return Transfer{}, fmt.Errorf("transfer %s from %q: %w", req.Amount, from.Name, err)
		}
		return Transfer{}, fmt.Errorf("transfer: %w", err)
	}
	return Transfer{Debit: out, Credit: in}, nil
}

func transferNotes(generated, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return generated
	}
	return generated + ": " + extra
}
