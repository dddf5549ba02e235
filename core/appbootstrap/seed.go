package appbootstrap

import (
	"context"
	"os"

	"korgan-irp/core/auth"
	"korgan-irp/core/rbac"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

const (
	defaultRootOrgID   = "mchs"
	defaultRootOrgName = "Ministry of Emergency Situations"
	defaultAdminUser   = "admin"
)

// SeedBaseline makes a fresh database usable: a root org unit and a ministry
// admin account. Already-seeded databases are left alone.
func SeedBaseline(ctx context.Context, db *App, logger *utils.Logger) error {
	orgUnits := store.NewOrgUnitsStore(db.DB)
	users := store.NewUsersStore(db.DB)

	root, err := orgUnits.Get(ctx, defaultRootOrgID)
	if err != nil {
		return err
	}
	if root == nil {
		if err := orgUnits.Create(ctx, &store.OrgUnit{
			ID:   defaultRootOrgID,
			Name: defaultRootOrgName,
			Tier: store.TierMCHS,
		}); err != nil {
			return err
		}
		logger.Printf("seeded root org unit %q", defaultRootOrgID)
	}

	admin, err := users.FindByUsername(ctx, defaultAdminUser)
	if err != nil {
		return err
	}
	if admin != nil {
		return nil
	}
	password := os.Getenv("KORGAN_ADMIN_PASSWORD")
	if password == "" {
		password, err = utils.RandString(24)
		if err != nil {
			return err
		}
		logger.Printf("generated admin password: %s (set KORGAN_ADMIN_PASSWORD to pin it)", password)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = users.Create(ctx, &store.User{
		Username:     defaultAdminUser,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         rbac.RoleMCHS,
		OrgUnitID:    defaultRootOrgID,
		Active:       true,
	})
	if err == nil {
		logger.Printf("seeded admin account %q", defaultAdminUser)
	}
	return err
}
