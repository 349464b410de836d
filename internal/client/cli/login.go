package cli

import (
	"context"
	"fmt"

	"github.com/nstepa/quizdeck/internal/client/migrate"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	// guest state, captured before login replaces it; progress whose
	// identity already lapsed is still migratable via its stamped ID
	progress := c.session.GuestProgress(ctx)
	guestID := progress.GuestID
	if guest, ok := c.session.GuestIdentity(ctx); ok {
		guestID = guest.ID
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	identity, err := c.session.Login(ctx, email, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("User: %s\n", identity.UserID)

	if progress.Quizzes > 0 && guestID != "" {
		if err := c.migrateGuestProgress(ctx, guestID, identity.UserID); err != nil {
			// sign-in itself stands; the guest data is safe in the backup
			c.io.Printf("Guest progress migration failed: %v\n", err)
			c.io.Println("Your guest progress has been restored and can be migrated later.")
		}
	}

	return nil
}

// migrateGuestProgress runs the migration, rendering each step, and
// rolls back on failure so no guest data is lost.
func (c *Cli) migrateGuestProgress(ctx context.Context, guestID, userID string) error {
	sess, ok := c.session.Session(ctx)
	if !ok {
		return fmt.Errorf("no active session")
	}

	deviceID, err := c.session.DeviceID(ctx)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Migrating guest progress...")

	updates, err := c.migrator.Run(ctx, migrate.Target{
		GuestID:     guestID,
		UserID:      userID,
		AccessToken: sess.Token,
		DeviceID:    deviceID,
	})
	if err != nil {
		return err
	}

	var last migrate.Snapshot
	for snap := range updates {
		last = snap
		if snap.CurrentStep != "" {
			c.io.Printf("  [%d/%d] %s\n", snap.CompletedSteps, snap.TotalSteps, snap.CurrentStep)
		}
	}

	if last.Status == migrate.StatusFailed {
		if rbErr := c.migrator.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%s (rollback also failed: %v)", last.Error, rbErr)
		}
		return fmt.Errorf("%s", last.Error)
	}

	c.io.Println("✓ Guest progress migrated.")
	return nil
}
