package stub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldcart/internal/domain"
	"fieldcart/internal/stub/sqlite"
)

// Seed populates the stub with a small marketplace: two accounts (a buyer
// and a farm seller), a product catalogue, and one conversation between
// them. Idempotent: seeding an already-seeded database is a no-op.
func Seed(ctx context.Context, db *sql.DB) error {
	users := sqlite.NewUserRepo(db)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)
	carts := sqlite.NewCartRepo(db)

	if _, err := users.GetByUsername(ctx, "alice"); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	buyerHash, err := HashPassword("alice123")
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	sellerHash, err := HashPassword("meadow123")
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	buyer := &sqlite.Account{
		User:           domain.User{ID: "u-alice", Name: "Alice Park", Role: "buyer"},
		Username:       "alice",
		HashedPassword: buyerHash,
	}
	seller := &sqlite.Account{
		User:           domain.User{ID: "u-meadow", Name: "Meadow Farm", Role: "seller"},
		Username:       "meadow",
		HashedPassword: sellerHash,
	}
	for _, a := range []*sqlite.Account{buyer, seller} {
		if err := users.Create(ctx, a); err != nil {
			return err
		}
	}

	products := []*domain.Product{
		{ID: "p-eggs", FarmID: "farm-meadow", Name: "Free-range eggs", Price: 4.5, Unit: "dozen", Stock: 40},
		{ID: "p-honey", FarmID: "farm-meadow", Name: "Wildflower honey", Price: 9.0, Unit: "jar", Stock: 12},
		{ID: "p-kale", FarmID: "farm-meadow", Name: "Curly kale", Price: 2.25, Unit: "bunch", Stock: 30},
	}
	for _, p := range products {
		if err := carts.CreateProduct(ctx, p); err != nil {
			return err
		}
	}

	conv := &domain.Conversation{
		ID:     "c-meadow-alice",
		Name:   "Meadow Farm",
		FarmID: "farm-meadow",
		UserID: buyer.ID,
	}
	if err := convs.Create(ctx, conv); err != nil {
		return err
	}
	if _, err := msgs.Create(ctx, conv.ID, seller.ID, "Hi! The honey harvest just came in."); err != nil {
		return err
	}
	if _, err := msgs.Create(ctx, conv.ID, buyer.ID, "Great, put me down for two jars."); err != nil {
		return err
	}

	return nil
}
