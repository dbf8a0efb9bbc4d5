package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the phone number has no loyalty account yet.
var ErrNotFound = errors.New("loyalty account not found")

// ErrNoReward indicates the punch card has no earned free item left.
var ErrNoReward = errors.New("no stamp reward available")

// Store persists loyalty accounts and their punch cards in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Get loads an account and its punch card.
func (s *Store) Get(ctx context.Context, phone string) (Account, StampCard, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT phone, name, points, stamps, redeemed FROM loyalty_accounts WHERE phone = $1`, phone)
	return scanAccount(row)
}

// Credit atomically adds points and stamps inside the caller's transaction,
// creating the account on first contact. The row is locked so concurrent
// checkouts for the same phone serialize.
func (s *Store) Credit(ctx context.Context, tx pgx.Tx, phone, name string, points int64, stamps map[string]int) (Account, StampCard, error) {
	row := tx.QueryRow(ctx,
		`SELECT phone, name, points, stamps, redeemed FROM loyalty_accounts WHERE phone = $1 FOR UPDATE`, phone)
	account, card, err := scanAccount(row)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Account{}, StampCard{}, err
		}
		account = Account{Phone: phone, Name: name}
		card = StampCard{}
	}

	account.Points += points
	if account.Points < 0 {
		account.Points = 0
	}
	if name != "" {
		account.Name = name
	}
	for family, n := range stamps {
		card = AddStamps(card, family, n)
	}

	rawStamps, err := json.Marshal(card.Counts)
	if err != nil {
		return Account{}, StampCard{}, fmt.Errorf("encode stamps: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO loyalty_accounts (phone, name, points, stamps, redeemed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (phone) DO UPDATE
		 SET name = EXCLUDED.name,
		     points = EXCLUDED.points,
		     stamps = EXCLUDED.stamps,
		     redeemed = EXCLUDED.redeemed,
		     updated_at = now()`,
		account.Phone, account.Name, account.Points, rawStamps, card.Redeemed)
	if err != nil {
		return Account{}, StampCard{}, fmt.Errorf("credit loyalty account: %w", err)
	}
	return account, card, nil
}

// Redeem marks one earned free item as used. The row is locked so two
// concurrent checkouts cannot both spend the last reward.
func (s *Store) Redeem(ctx context.Context, tx pgx.Tx, phone string, cfg Config) (StampCard, error) {
	row := tx.QueryRow(ctx,
		`SELECT phone, name, points, stamps, redeemed FROM loyalty_accounts WHERE phone = $1 FOR UPDATE`, phone)
	account, card, err := scanAccount(row)
	if err != nil {
		return StampCard{}, err
	}
	if cfg.AvailableRewards(card) < 1 {
		return StampCard{}, ErrNoReward
	}
	card.Redeemed++
	_, err = tx.Exec(ctx,
		`UPDATE loyalty_accounts SET redeemed = $2, updated_at = now() WHERE phone = $1`,
		account.Phone, card.Redeemed)
	if err != nil {
		return StampCard{}, fmt.Errorf("redeem stamp reward: %w", err)
	}
	return card, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, StampCard, error) {
	var account Account
	var rawStamps []byte
	var card StampCard
	err := row.Scan(&account.Phone, &account.Name, &account.Points, &rawStamps, &card.Redeemed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, StampCard{}, ErrNotFound
		}
		return Account{}, StampCard{}, fmt.Errorf("scan loyalty account: %w", err)
	}
	if len(rawStamps) > 0 {
		if err := json.Unmarshal(rawStamps, &card.Counts); err != nil {
			return Account{}, StampCard{}, fmt.Errorf("decode stamps: %w", err)
		}
	}
	if card.Counts == nil {
		card.Counts = map[string]int{}
	}
	return account, card, nil
}
